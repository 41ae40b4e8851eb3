package graph

import (
	"fmt"
	"strings"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/nodestore"
	"github.com/vk/nodeweave/internal/snapshot"
)

var _ node.Resolver = (*Graph)(nil)

// NodeData returns the cached output of n on ch.
func (g *Graph) NodeData(n *node.Node, ch channel.Channel) (*snapshot.Snapshot, bool) {
	return g.outputs.Output(n.UID(), ch)
}

// SetNodeData caches out as n's output on ch.
func (g *Graph) SetNodeData(n *node.Node, ch channel.Channel, out *snapshot.Snapshot) {
	g.outputs.SetOutput(n.UID(), ch, out)
}

// Outputs returns the output cache.
func (g *Graph) Outputs() nodestore.Store { return g.outputs }

// Serialise returns the cached output store as uid -> channel -> snapshot.
func (g *Graph) Serialise() map[string]map[string]any {
	return g.outputs.Serialise()
}

// OutputSnapshotForChannel asks n for its live output on ch.
func (g *Graph) OutputSnapshotForChannel(n *node.Node, ch channel.Channel) (*snapshot.Snapshot, error) {
	return n.OutputForChannel(ch)
}

// IncomingSnapshotForChannel merges the live outputs of every input tie of n
// on ch. Several inputs on one channel are all combined, in tie order.
func (g *Graph) IncomingSnapshotForChannel(n *node.Node, ch channel.Channel) (*snapshot.Snapshot, error) {
	return g.IncomingSnapshot(node.NewScope(), n, ch)
}

// IncomingSnapshot implements node.Resolver. Each upstream output is resolved
// in scope s, so a record reached twice on one channel is a cycle.
func (g *Graph) IncomingSnapshot(s *node.Scope, n *node.Node, ch channel.Channel) (*snapshot.Snapshot, error) {
	if err := s.Enter(n, ch); err != nil {
		return nil, fmt.Errorf("resolving %s input of %s: %w", ch, n, err)
	}
	defer s.Leave(n, ch)

	ties := g.NodeInputMap(n)[ch]
	outs := make([]*snapshot.Snapshot, 0, len(ties))
	for _, tie := range ties {
		out, err := tie.Node.ResolveOutput(s, tie.Channel)
		if err != nil {
			return nil, fmt.Errorf("resolving %s input of %s from %s: %w", ch, n, tie.Node, err)
		}
		outs = append(outs, out)
	}
	return snapshot.Merge(outs...), nil
}

// HasInputs implements node.Resolver.
func (g *Graph) HasInputs(n *node.Node, ch channel.Channel) bool {
	for _, e := range g.topology.InEdges(n.UID()) {
		if e.Key.Channel == ch {
			return true
		}
	}
	return false
}

// SnapshotOf cuts the graph at ns: each node's resolved params tree plus the
// uid pairs of edges running between members of ns.
func (g *Graph) SnapshotOf(ns []*node.Node) (*snapshot.Snapshot, error) {
	members := make(map[string]struct{}, len(ns))
	trees := make([]*datatree.Tree, 0, len(ns))
	for _, n := range ns {
		if err := g.require(n); err != nil {
			return nil, err
		}
		p, err := n.Params()
		if err != nil {
			return nil, err
		}
		members[n.UID()] = struct{}{}
		trees = append(trees, p)
	}

	var pairs []snapshot.EdgePair
	seen := make(map[snapshot.EdgePair]struct{})
	for _, e := range g.topology.Edges() {
		_, from := members[e.Key.From]
		_, to := members[e.Key.To]
		pair := snapshot.EdgePair{From: e.Key.From, To: e.Key.To}
		if _, dup := seen[pair]; from && to && !dup {
			seen[pair] = struct{}{}
			pairs = append(pairs, pair)
		}
	}

	copied := make([]*datatree.Tree, len(trees))
	for i, t := range trees {
		// Resolved params of a reference carry the source uid; the cut is
		// indexed by the member's own uid.
		copied[i] = t.Copy()
		copied[i].SetUID(ns[i].UID())
	}
	return snapshot.New(copied, pairs...), nil
}

// AddReference creates a node of base's type whose params are drawn from
// base through a Params edge.
func (g *Graph) AddReference(base *node.Node, name string) (*node.Node, error) {
	if err := g.require(base); err != nil {
		return nil, fmt.Errorf("referencing: %w", err)
	}
	if name == "" {
		name = base.Name()
	}

	var ref *node.Node
	err := g.Batch(func() error {
		var err error
		ref, err = g.CreateNode(base.TypeName(), name, "")
		if err != nil {
			return err
		}
		if err := g.ConnectNodes(base, ref, channel.Params, channel.Params); err != nil {
			_ = g.RemoveNode(ref)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("referencing %s: %w", base, err)
	}
	return ref, nil
}

// CreateMultiReference routes several nodes into one new reference node,
// connecting each on Params in the given order.
func (g *Graph) CreateMultiReference(ns []*node.Node, name string) (*node.Node, error) {
	if name == "" {
		name = "refGraph"
	}
	if err := g.require(ns...); err != nil {
		return nil, fmt.Errorf("multi-referencing: %w", err)
	}

	var ref *node.Node
	err := g.Batch(func() error {
		var err error
		ref, err = g.CreateNode("node", name, "")
		if err != nil {
			return err
		}
		for i, n := range ns {
			if err := g.ConnectNodesAt(n, ref, channel.Params, channel.Params, i); err != nil {
				_ = g.RemoveNode(ref)
				return err
			}
		}
		return nil
	})
	if err != nil {
		names := make([]string, len(ns))
		for i, n := range ns {
			names[i] = n.Name()
		}
		return nil, fmt.Errorf("multi-referencing %s: %w", strings.Join(names, ", "), err)
	}
	return ref, nil
}
