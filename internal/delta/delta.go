package delta

import (
	"sort"

	"github.com/vk/nodeweave/internal/topologystore"
)

// NodeDelta records nodes added and removed, keyed by uid.
type NodeDelta[N topologystore.Vertex] struct {
	Added   map[string]N
	Removed map[string]N
}

// IsEmpty reports whether the delta carries no change.
func (d NodeDelta[N]) IsEmpty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// AddedUIDs returns the added uids, sorted.
func (d NodeDelta[N]) AddedUIDs() []string { return sortedKeys(d.Added) }

// RemovedUIDs returns the removed uids, sorted.
func (d NodeDelta[N]) RemovedUIDs() []string { return sortedKeys(d.Removed) }

// Inverse swaps added and removed.
func (d NodeDelta[N]) Inverse() NodeDelta[N] {
	return NodeDelta[N]{Added: d.Removed, Removed: d.Added}
}

// EdgeDelta records edges added and removed. Attribute-only changes on an
// existing key are not reported.
type EdgeDelta struct {
	Added   map[topologystore.EdgeKey]topologystore.EdgeAttrs
	Removed map[topologystore.EdgeKey]topologystore.EdgeAttrs
}

// IsEmpty reports whether the delta carries no change.
func (d EdgeDelta) IsEmpty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// AddedEdges returns the added edges in key order.
func (d EdgeDelta) AddedEdges() []topologystore.Edge { return sortedEdges(d.Added) }

// RemovedEdges returns the removed edges in key order.
func (d EdgeDelta) RemovedEdges() []topologystore.Edge { return sortedEdges(d.Removed) }

// Inverse swaps added and removed.
func (d EdgeDelta) Inverse() EdgeDelta {
	return EdgeDelta{Added: d.Removed, Removed: d.Added}
}

// Delta pairs the node and edge changes of one mutating call.
type Delta[N topologystore.Vertex] struct {
	Nodes NodeDelta[N]
	Edges EdgeDelta
}

// IsEmpty reports whether neither part carries a change.
func (d Delta[N]) IsEmpty() bool { return d.Nodes.IsEmpty() && d.Edges.IsEmpty() }

// Inverse returns the delta that undoes d.
func (d Delta[N]) Inverse() Delta[N] {
	return Delta[N]{Nodes: d.Nodes.Inverse(), Edges: d.Edges.Inverse()}
}

// CombineNodeDeltas unions every addition and every removal in ds. A uid that
// was both added and removed inside ds appears in both sets.
func CombineNodeDeltas[N topologystore.Vertex](ds []NodeDelta[N]) NodeDelta[N] {
	out := NodeDelta[N]{Added: map[string]N{}, Removed: map[string]N{}}
	for _, d := range ds {
		for uid, n := range d.Added {
			out.Added[uid] = n
		}
		for uid, n := range d.Removed {
			out.Removed[uid] = n
		}
	}
	return out
}

// CombineEdgeDeltas unions every addition and every removal in ds.
func CombineEdgeDeltas(ds []EdgeDelta) EdgeDelta {
	out := EdgeDelta{
		Added:   map[topologystore.EdgeKey]topologystore.EdgeAttrs{},
		Removed: map[topologystore.EdgeKey]topologystore.EdgeAttrs{},
	}
	for _, d := range ds {
		for k, a := range d.Added {
			out.Added[k] = a
		}
		for k, a := range d.Removed {
			out.Removed[k] = a
		}
	}
	return out
}

func diffNodes[N topologystore.Vertex](before, after map[string]N) NodeDelta[N] {
	d := NodeDelta[N]{Added: map[string]N{}, Removed: map[string]N{}}
	for uid, n := range after {
		if _, ok := before[uid]; !ok {
			d.Added[uid] = n
		}
	}
	for uid, n := range before {
		if _, ok := after[uid]; !ok {
			d.Removed[uid] = n
		}
	}
	return d
}

func diffEdges(before, after map[topologystore.EdgeKey]topologystore.EdgeAttrs) EdgeDelta {
	d := EdgeDelta{
		Added:   map[topologystore.EdgeKey]topologystore.EdgeAttrs{},
		Removed: map[topologystore.EdgeKey]topologystore.EdgeAttrs{},
	}
	for k, a := range after {
		if _, ok := before[k]; !ok {
			d.Added[k] = a
		}
	}
	for k, a := range before {
		if _, ok := after[k]; !ok {
			d.Removed[k] = a
		}
	}
	return d
}

func sortedKeys[N any](m map[string]N) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedEdges(m map[topologystore.EdgeKey]topologystore.EdgeAttrs) []topologystore.Edge {
	edges := make([]topologystore.Edge, 0, len(m))
	for k, a := range m {
		edges = append(edges, topologystore.Edge{Key: k, Attrs: a})
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i].Key, edges[j].Key
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Channel < b.Channel
	})
	return edges
}
