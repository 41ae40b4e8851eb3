package graph

import (
	"errors"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/delta"
	"github.com/vk/nodeweave/internal/node"
)

var (
	// ErrMissingNode is returned when a uid or name does not match a node in
	// the graph.
	ErrMissingNode = errors.New("missing node")
	// ErrDuplicateNode is returned when adding a different record under a uid
	// already present.
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrCyclicResolution is returned when resolving a channel leads back to
	// itself.
	ErrCyclicResolution = node.ErrCyclicResolution
)

// Delta is a structural change of the graph.
type Delta = delta.Delta[*node.Node]

// NodeDelta is the node part of a Delta.
type NodeDelta = delta.NodeDelta[*node.Node]

// EdgeDelta is the edge part of a Delta.
type EdgeDelta = delta.EdgeDelta

// Setupper is implemented by node types that build extra structure when
// created, for example child nodes. Setup runs inside the creation's paused
// region, so listeners see the node and everything it built in one delta.
type Setupper interface {
	Setup(g *Graph, n *node.Node) error
}

// Tie is one end of an edge as seen from the other end.
type Tie struct {
	Node *node.Node
	// Channel is the channel on Node's side of the edge.
	Channel channel.Channel
	Index   int
}
