package testutil

import (
	"sync"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/registry"
	"github.com/vk/nodeweave/internal/snapshot"
)

// RecorderType is the node type registered by RecorderModule.
const RecorderType = "recorder"

// RecorderModule registers a "recorder" node type that passes its input
// through and remembers the order in which nodes executed.
type RecorderModule struct {
	mu    sync.Mutex
	order []string
	// OnExecute, when set, runs before a recorder node passes its data on.
	// Returning an error fails the node.
	OnExecute func(n *node.Node) error
}

type recorder struct {
	node.Base
	m *RecorderModule
}

// Register implements registry.Module.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.MustRegister(&registry.NodeType{
		Name:        RecorderType,
		Description: "Records execution order and passes data through.",
		New:         func() node.Behaviour { return &recorder{Base: node.Base{Name: RecorderType}, m: m} },
	})
}

// Order returns the names of executed nodes, in execution order.
func (m *RecorderModule) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (r *recorder) Execute(n *node.Node, in *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	r.m.mu.Lock()
	r.m.order = append(r.m.order, n.Name())
	r.m.mu.Unlock()

	if r.m.OnExecute != nil {
		if err := r.m.OnExecute(n); err != nil {
			return nil, err
		}
	}
	if !n.HasInputs(channel.Flow) {
		p, err := n.Params()
		if err != nil {
			return nil, err
		}
		return snapshot.Of(p), nil
	}
	return in.Copy(), nil
}
