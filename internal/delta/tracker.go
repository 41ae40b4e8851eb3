package delta

import (
	"fmt"
	"sync"

	"github.com/vk/nodeweave/internal/event"
	"github.com/vk/nodeweave/internal/topologystore"
)

// Tracker wraps a topology store and reports every structural change.
type Tracker[N topologystore.Vertex] struct {
	store topologystore.Store[N]

	mu           sync.Mutex
	depth        int
	pendingNodes []NodeDelta[N]
	pendingEdges []EdgeDelta

	// Raw fires for every mutating call, even while paused.
	Raw event.Signal[Delta[N]]
	// NodesChanged fires with coalesced node deltas.
	NodesChanged event.Signal[NodeDelta[N]]
	// EdgesChanged fires with coalesced edge deltas.
	EdgesChanged event.Signal[EdgeDelta]
}

// NewTracker takes ownership of store. The caller must not mutate store
// directly afterwards.
func NewTracker[N topologystore.Vertex](store topologystore.Store[N]) *Tracker[N] {
	return &Tracker[N]{store: store}
}

// View returns a read-only view of the tracked store.
func (t *Tracker[N]) View() topologystore.Reader[N] { return topologystore.ReadOnly[N](t.store) }

// Paused reports whether gathering is currently paused.
func (t *Tracker[N]) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.depth > 0
}

// Pause starts or nests a gathering region.
func (t *Tracker[N]) Pause() {
	t.mu.Lock()
	t.depth++
	t.mu.Unlock()
}

// Resume ends one gathering region. Only the outermost Resume flushes: when
// emit is true it sends at most one node delta and one edge delta combining
// everything gathered, otherwise it drops them. Resume without a matching
// Pause does nothing.
func (t *Tracker[N]) Resume(emit bool) {
	t.mu.Lock()
	if t.depth == 0 {
		t.mu.Unlock()
		return
	}
	t.depth--
	if t.depth > 0 {
		t.mu.Unlock()
		return
	}
	nodes, edges := t.pendingNodes, t.pendingEdges
	t.pendingNodes, t.pendingEdges = nil, nil
	t.mu.Unlock()

	if !emit {
		return
	}
	if len(nodes) > 0 {
		if d := CombineNodeDeltas(nodes); !d.IsEmpty() {
			t.NodesChanged.Emit(d)
		}
	}
	if len(edges) > 0 {
		if d := CombineEdgeDeltas(edges); !d.IsEmpty() {
			t.EdgesChanged.Emit(d)
		}
	}
}

// Batch runs fn inside a gathering region and flushes afterwards, whether or
// not fn failed.
func (t *Tracker[N]) Batch(fn func() error) error {
	t.Pause()
	defer t.Resume(true)
	return fn()
}

// Mark is a point inside a gathering region that Collapse can return to.
type Mark[N topologystore.Vertex] struct {
	nodes, edges int
	before       map[string]N
	beforeEdges  map[topologystore.EdgeKey]topologystore.EdgeAttrs
}

// Mark records the current structure and the gathered deltas so far.
func (t *Tracker[N]) Mark() Mark[N] {
	m := Mark[N]{before: t.nodeSet(), beforeEdges: t.edgeSet()}
	t.mu.Lock()
	m.nodes, m.edges = len(t.pendingNodes), len(t.pendingEdges)
	t.mu.Unlock()
	return m
}

// Collapse replaces everything gathered since m with the net change between
// m and now, so a node or edge both added and removed since m leaves no
// trace in the flushed deltas. It has no effect outside a gathering region.
func (t *Tracker[N]) Collapse(m Mark[N]) {
	nodes := diffNodes(m.before, t.nodeSet())
	edges := diffEdges(m.beforeEdges, t.edgeSet())

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.depth == 0 || m.nodes > len(t.pendingNodes) || m.edges > len(t.pendingEdges) {
		return
	}
	t.pendingNodes = t.pendingNodes[:m.nodes]
	if !nodes.IsEmpty() {
		t.pendingNodes = append(t.pendingNodes, nodes)
	}
	t.pendingEdges = t.pendingEdges[:m.edges]
	if !edges.IsEmpty() {
		t.pendingEdges = append(t.pendingEdges, edges)
	}
}

func (t *Tracker[N]) nodeSet() map[string]N {
	nodes := t.store.Nodes()
	m := make(map[string]N, len(nodes))
	for _, n := range nodes {
		m[n.UID()] = n
	}
	return m
}

func (t *Tracker[N]) edgeSet() map[topologystore.EdgeKey]topologystore.EdgeAttrs {
	edges := t.store.Edges()
	m := make(map[topologystore.EdgeKey]topologystore.EdgeAttrs, len(edges))
	for _, e := range edges {
		m[e.Key] = e.Attrs
	}
	return m
}

// track runs one primitive and records its delta.
func (t *Tracker[N]) track(fn func() error) error {
	beforeNodes, beforeEdges := t.nodeSet(), t.edgeSet()
	err := fn()
	d := Delta[N]{
		Nodes: diffNodes(beforeNodes, t.nodeSet()),
		Edges: diffEdges(beforeEdges, t.edgeSet()),
	}
	if !d.IsEmpty() {
		t.record(d)
	}
	return err
}

func (t *Tracker[N]) record(d Delta[N]) {
	t.Raw.Emit(d)

	t.mu.Lock()
	paused := t.depth > 0
	if paused {
		if !d.Nodes.IsEmpty() {
			t.pendingNodes = append(t.pendingNodes, d.Nodes)
		}
		if !d.Edges.IsEmpty() {
			t.pendingEdges = append(t.pendingEdges, d.Edges)
		}
	}
	t.mu.Unlock()
	if paused {
		return
	}

	if !d.Nodes.IsEmpty() {
		t.NodesChanged.Emit(d.Nodes)
	}
	if !d.Edges.IsEmpty() {
		t.EdgesChanged.Emit(d.Edges)
	}
}

// AddNode adds n.
func (t *Tracker[N]) AddNode(n N) {
	_ = t.track(func() error { t.store.AddNode(n); return nil })
}

// AddNodes adds every node.
func (t *Tracker[N]) AddNodes(ns ...N) {
	_ = t.track(func() error { t.store.AddNodes(ns...); return nil })
}

// RemoveNode removes a node and its incident edges.
func (t *Tracker[N]) RemoveNode(uid string) error {
	return t.track(func() error { return t.store.RemoveNode(uid) })
}

// RemoveNodes removes every listed node.
func (t *Tracker[N]) RemoveNodes(uids ...string) {
	_ = t.track(func() error { t.store.RemoveNodes(uids...); return nil })
}

// AddEdge adds or updates an edge.
func (t *Tracker[N]) AddEdge(e topologystore.Edge) error {
	return t.track(func() error { return t.store.AddEdge(e) })
}

// AddEdges adds every edge.
func (t *Tracker[N]) AddEdges(es ...topologystore.Edge) error {
	return t.track(func() error { return t.store.AddEdges(es...) })
}

// RemoveEdge removes one edge.
func (t *Tracker[N]) RemoveEdge(key topologystore.EdgeKey) error {
	return t.track(func() error { return t.store.RemoveEdge(key) })
}

// RemoveEdges removes every listed edge.
func (t *Tracker[N]) RemoveEdges(keys ...topologystore.EdgeKey) {
	_ = t.track(func() error { t.store.RemoveEdges(keys...); return nil })
}

// Clear removes everything.
func (t *Tracker[N]) Clear() {
	_ = t.track(func() error { t.store.Clear(); return nil })
}

// Update adds nodes then edges.
func (t *Tracker[N]) Update(nodes []N, edges []topologystore.Edge) error {
	return t.track(func() error { return t.store.Update(nodes, edges) })
}

// Apply replays d inside one gathering region.
func (t *Tracker[N]) Apply(d Delta[N]) error {
	return t.Batch(func() error {
		added := make([]N, 0, len(d.Nodes.Added))
		for _, uid := range d.Nodes.AddedUIDs() {
			added = append(added, d.Nodes.Added[uid])
		}
		t.AddNodes(added...)
		if err := t.AddEdges(d.Edges.AddedEdges()...); err != nil {
			return fmt.Errorf("applying delta: %w", err)
		}
		removedEdges := make([]topologystore.EdgeKey, 0, len(d.Edges.Removed))
		for _, e := range d.Edges.RemovedEdges() {
			removedEdges = append(removedEdges, e.Key)
		}
		t.RemoveEdges(removedEdges...)
		t.RemoveNodes(d.Nodes.RemovedUIDs()...)
		return nil
	})
}

// Revert undoes d inside one gathering region.
func (t *Tracker[N]) Revert(d Delta[N]) error {
	return t.Apply(d.Inverse())
}
