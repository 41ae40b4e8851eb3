package snapshot

import (
	"github.com/vk/nodeweave/internal/inmemorytopology"
	"github.com/vk/nodeweave/internal/topologystore"
)

// Vertex stands for one tree uid in a ResultGraph.
type Vertex string

// UID implements topologystore.Vertex.
func (v Vertex) UID() string { return string(v) }

// ResultGraph returns the topology the snapshot describes as a graph of bare
// uids, independent of any live node record. Every tree and every edge
// endpoint becomes a vertex. Edges are untyped: their channels are empty and
// their index is unordered.
func (s *Snapshot) ResultGraph() *inmemorytopology.Store[Vertex] {
	g := inmemorytopology.New[Vertex]()
	for _, t := range s.trees {
		g.AddNode(Vertex(t.UID()))
	}
	for _, e := range s.Edges() {
		for _, uid := range []string{e.From, e.To} {
			if !g.HasNode(uid) {
				g.AddNode(Vertex(uid))
			}
		}
		// Both endpoints exist and the channels agree, so this cannot fail.
		_ = g.AddEdge(topologystore.NewEdge(e.From, e.To, "", "", topologystore.UnorderedIndex))
	}
	return g
}
