package graph

import "github.com/vk/nodeweave/internal/node"

// RootsEnds splits ns into roots, which have no incoming edge in the graph,
// and ends, which have no outgoing edge. Edges of every channel count. A node
// with no edges at all is both. Input order is kept.
func (g *Graph) RootsEnds(ns []*node.Node) (roots, ends []*node.Node) {
	for _, n := range ns {
		if len(g.topology.Predecessors(n.UID())) == 0 {
			roots = append(roots, n)
		}
		if len(g.topology.Successors(n.UID())) == 0 {
			ends = append(ends, n)
		}
	}
	return roots, ends
}

// NodesBetween returns every node lying on a path from a root of ns to an end
// of ns, as given by RootsEnds. With inclusive the members of ns are part of
// the result; otherwise they are left out. Nodes are in graph order.
func (g *Graph) NodesBetween(ns []*node.Node, inclusive bool) []*node.Node {
	roots, ends := g.RootsEnds(ns)

	members := make(map[string]struct{}, len(ns))
	for _, n := range ns {
		members[n.UID()] = struct{}{}
	}
	downstream := make(map[string]struct{})
	for _, r := range roots {
		downstream[r.UID()] = struct{}{}
		for _, uid := range g.topology.Descendants(r.UID()) {
			downstream[uid] = struct{}{}
		}
	}
	between := make(map[string]struct{})
	for _, e := range ends {
		for _, uid := range append(g.topology.Ancestors(e.UID()), e.UID()) {
			if _, ok := downstream[uid]; ok {
				between[uid] = struct{}{}
			}
		}
	}

	var out []*node.Node
	for _, n := range g.topology.Nodes() {
		_, member := members[n.UID()]
		_, inside := between[n.UID()]
		switch {
		case member && inclusive:
			out = append(out, n)
		case inside && !member:
			out = append(out, n)
		}
	}
	return out
}
