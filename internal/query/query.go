// Package query holds node filters: pure predicates over node records that
// callers use to pick the part of a graph to show or operate on.
package query

import (
	"fmt"
	"path"

	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/topologystore"
)

// Filter reports whether a node is selected.
type Filter func(n *node.Node) bool

// All selects every node.
func All() Filter { return func(*node.Node) bool { return true } }

// NamePattern selects nodes whose name matches a shell glob such as "lamp_*".
func NamePattern(pattern string) (Filter, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}
	return func(n *node.Node) bool {
		ok, _ := path.Match(pattern, n.Name())
		return ok
	}, nil
}

// TypeIs selects nodes of any of the given type names.
func TypeIs(names ...string) Filter {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return func(n *node.Node) bool {
		_, ok := set[n.TypeName()]
		return ok
	}
}

// UIDIn selects nodes by uid.
func UIDIn(uids ...string) Filter {
	set := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		set[uid] = struct{}{}
	}
	return func(n *node.Node) bool {
		_, ok := set[n.UID()]
		return ok
	}
}

// And selects nodes matched by every filter.
func And(fs ...Filter) Filter {
	return func(n *node.Node) bool {
		for _, f := range fs {
			if !f(n) {
				return false
			}
		}
		return true
	}
}

// Or selects nodes matched by any filter.
func Or(fs ...Filter) Filter {
	return func(n *node.Node) bool {
		for _, f := range fs {
			if f(n) {
				return true
			}
		}
		return false
	}
}

// Not inverts f.
func Not(f Filter) Filter {
	return func(n *node.Node) bool { return !f(n) }
}

// Nodes returns the nodes matched by f, keeping their order.
func Nodes(nodes []*node.Node, f Filter) []*node.Node {
	var out []*node.Node
	for _, n := range nodes {
		if f(n) {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns the edges whose endpoints are both in nodes.
func Edges(edges []topologystore.Edge, nodes []*node.Node) []topologystore.Edge {
	set := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		set[n.UID()] = struct{}{}
	}
	var out []topologystore.Edge
	for _, e := range edges {
		_, from := set[e.Key.From]
		_, to := set[e.Key.To]
		if from && to {
			out = append(out, e)
		}
	}
	return out
}
