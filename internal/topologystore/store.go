// Package topologystore defines the interface for storing and querying the
// structure of a channel-typed multi-edge graph.
//
// # Why Topology Store Exists
//
// The topology store isolates graph structure (which records exist and how
// they are wired) from the data they compute, which lives in nodestore. The
// change tracker wraps a Store to observe every structural mutation, and the
// scheduler only reads from it.
//
// # Edges
//
// An edge is keyed by (from, to, destination channel). Several edges may link
// the same pair as long as their destination channels differ. Attributes carry
// the source channel and an ordering index; the destination channel recorded
// in the attributes always equals the key channel, because resolution looks
// backwards from consumer to producer.
package topologystore

import (
	"errors"
	"fmt"

	"github.com/vk/nodeweave/internal/channel"
)

var (
	// ErrMissingVertex is returned when a uid is not in the topology.
	ErrMissingVertex = errors.New("vertex not found in topology")
	// ErrMissingEdge is returned when an edge key is not in the topology.
	ErrMissingEdge = errors.New("edge not found in topology")
	// ErrInvalidEdge is returned when an edge key and its attributes disagree.
	ErrInvalidEdge = errors.New("invalid edge")
	// ErrCycle is returned when a topological order does not exist.
	ErrCycle = errors.New("graph contains a cycle")
)

// UnorderedIndex marks an edge without an explicit input position.
const UnorderedIndex = -1

// Vertex is anything the topology can hold.
type Vertex interface {
	UID() string
}

// EdgeKey identifies one edge.
type EdgeKey struct {
	From    string
	To      string
	Channel channel.Channel
}

// String renders the key for logs and errors.
func (k EdgeKey) String() string {
	return fmt.Sprintf("%s -> %s [%s]", k.From, k.To, k.Channel)
}

// EdgeAttrs are the per-edge attributes.
type EdgeAttrs struct {
	FromChannel channel.Channel
	ToChannel   channel.Channel
	Index       int
}

// Edge is a key with its attributes.
type Edge struct {
	Key   EdgeKey
	Attrs EdgeAttrs
}

// NewEdge builds a consistent edge from source and destination channels.
func NewEdge(from, to string, fromCh, toCh channel.Channel, index int) Edge {
	return Edge{
		Key:   EdgeKey{From: from, To: to, Channel: toCh},
		Attrs: EdgeAttrs{FromChannel: fromCh, ToChannel: toCh, Index: index},
	}
}

// Validate checks the key/attribute invariant.
func (e Edge) Validate() error {
	if e.Key.Channel != e.Attrs.ToChannel {
		return fmt.Errorf("%w: key channel %s differs from destination channel %s", ErrInvalidEdge, e.Key.Channel, e.Attrs.ToChannel)
	}
	return nil
}

// Reader is the read-only view of a topology.
type Reader[N Vertex] interface {
	Node(uid string) (N, bool)
	HasNode(uid string) bool
	// Nodes returns vertices in insertion order.
	Nodes() []N
	NodeUIDs() []string
	Len() int

	Edge(key EdgeKey) (Edge, bool)
	// Edges returns edges in insertion order.
	Edges() []Edge
	InEdges(uid string) []Edge
	OutEdges(uid string) []Edge

	Predecessors(uid string) []string
	Successors(uid string) []string
	Ancestors(uid string) []string
	Descendants(uid string) []string

	// Subgraph returns an independent store induced on uids.
	Subgraph(uids []string) Store[N]
	// TopologicalGenerations layers every vertex so each layer only depends
	// on earlier ones. It fails with ErrCycle when no such layering exists.
	TopologicalGenerations() ([][]string, error)
}

// Store is the interface for the mutable structure of the graph.
//
// Implementations must be safe for concurrent use. Reads return copies that
// the caller may keep.
type Store[N Vertex] interface {
	Reader[N]

	// AddNode inserts n, or replaces the value held for its uid.
	AddNode(n N)
	// AddNodes inserts every node in order.
	AddNodes(ns ...N)
	// RemoveNode removes a vertex and all incident edges.
	RemoveNode(uid string) error
	// RemoveNodes removes every listed vertex, skipping unknown uids.
	RemoveNodes(uids ...string)
	// AddEdge inserts or updates an edge. Both endpoints must exist.
	AddEdge(e Edge) error
	// AddEdges inserts every edge, stopping at the first error.
	AddEdges(es ...Edge) error
	// RemoveEdge removes one edge.
	RemoveEdge(key EdgeKey) error
	// RemoveEdges removes every listed edge, skipping unknown keys.
	RemoveEdges(keys ...EdgeKey)
	// Clear removes everything.
	Clear()
	// Update adds nodes then edges in one call.
	Update(nodes []N, edges []Edge) error
}

type readOnly[N Vertex] struct {
	Reader[N]
}

// ReadOnly wraps r so that callers cannot reach its mutating methods through
// a type assertion.
func ReadOnly[N Vertex](r Reader[N]) Reader[N] {
	if ro, ok := r.(readOnly[N]); ok {
		return ro
	}
	return readOnly[N]{Reader: r}
}
