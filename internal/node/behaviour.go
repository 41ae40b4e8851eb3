package node

import (
	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/snapshot"
)

// Behaviour identifies a node type. Implementations add behaviour by also
// satisfying the optional interfaces below.
type Behaviour interface {
	TypeName() string
}

// ParamDefaulter lays out the default data of a freshly created node.
type ParamDefaulter interface {
	DefaultParams(base *datatree.Tree)
}

// Compositor resolves several incoming Params trees into one.
type Compositor interface {
	Composite(n *Node, trees []*datatree.Tree) (*datatree.Tree, error)
}

// Transformer processes a whole snapshot, including its topology.
type Transformer interface {
	Transform(n *Node, in *snapshot.Snapshot) (*snapshot.Snapshot, error)
}

// DataTransformer processes one tree at a time.
type DataTransformer interface {
	TransformData(n *Node, tree *datatree.Tree) (*datatree.Tree, error)
}

// Executor computes the Flow output stored by the scheduler.
type Executor interface {
	Execute(n *Node, in *snapshot.Snapshot) (*snapshot.Snapshot, error)
}

// ChannelOutputter overrides what a node emits for a channel. Returning
// handled=false falls back to the default dispatch.
type ChannelOutputter interface {
	OutputForChannel(n *Node, ch channel.Channel) (out *snapshot.Snapshot, handled bool, err error)
}

// Resolver gives a record access to its live inputs. IncomingSnapshot
// resolves within scope s, passing it on to every upstream record.
type Resolver interface {
	IncomingSnapshot(s *Scope, n *Node, ch channel.Channel) (*snapshot.Snapshot, error)
	HasInputs(n *Node, ch channel.Channel) bool
}

// Base is the default behaviour. Embed it to give a node type its name.
type Base struct {
	Name string
}

// TypeName implements Behaviour.
func (b Base) TypeName() string { return b.Name }
