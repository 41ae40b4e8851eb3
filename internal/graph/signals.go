package graph

import (
	"fmt"

	"github.com/vk/nodeweave/internal/node"
)

// OnDelta subscribes to every structural change, including changes made
// while gathering is paused. It returns an id for Unsubscribe.
func (g *Graph) OnDelta(h func(Delta)) string {
	return g.tracker.Raw.Subscribe(h)
}

// OnNodesChanged subscribes to coalesced node deltas.
func (g *Graph) OnNodesChanged(h func(NodeDelta)) string {
	return g.tracker.NodesChanged.Subscribe(h)
}

// OnEdgesChanged subscribes to coalesced edge deltas.
func (g *Graph) OnEdgesChanged(h func(EdgeDelta)) string {
	return g.tracker.EdgesChanged.Subscribe(h)
}

// OnParamsChanged subscribes to param writes on any node of the graph.
func (g *Graph) OnParamsChanged(h func(*node.Node)) string {
	return g.paramsChanged.Subscribe(h)
}

// Unsubscribe removes a subscription made through any On* method.
func (g *Graph) Unsubscribe(id string) bool {
	return g.tracker.Raw.Unsubscribe(id) ||
		g.tracker.NodesChanged.Unsubscribe(id) ||
		g.tracker.EdgesChanged.Unsubscribe(id) ||
		g.paramsChanged.Unsubscribe(id)
}

// PauseDeltaGathering starts or nests a region whose node and edge deltas are
// held back.
func (g *Graph) PauseDeltaGathering() { g.tracker.Pause() }

// UnpauseDeltaGathering ends one region. The outermost call emits the
// combined deltas when emit is true and drops them otherwise.
func (g *Graph) UnpauseDeltaGathering(emit bool) { g.tracker.Resume(emit) }

// DeltaGatheringPaused reports whether a gathering region is open.
func (g *Graph) DeltaGatheringPaused() bool { return g.tracker.Paused() }

// Batch runs fn in one gathering region and emits the combined deltas.
func (g *Graph) Batch(fn func() error) error { return g.tracker.Batch(fn) }

// ApplyDelta replays d. Nodes it adds reclaim their uids and are bound to
// this graph; nodes it removes are forgotten as by RemoveNode.
func (g *Graph) ApplyDelta(d Delta) error {
	for _, uid := range d.Nodes.AddedUIDs() {
		n := d.Nodes.Added[uid]
		if g.HasNode(n) {
			continue
		}
		if err := n.Reclaim(); err != nil {
			return fmt.Errorf("applying delta: %w", err)
		}
		g.attach(n)
	}
	if err := g.tracker.Apply(d); err != nil {
		return err
	}
	for _, n := range d.Nodes.Removed {
		if !g.HasNode(n) {
			g.forget(n)
		}
	}
	return nil
}

// RevertDelta undoes d.
func (g *Graph) RevertDelta(d Delta) error {
	return g.ApplyDelta(d.Inverse())
}
