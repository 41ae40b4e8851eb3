package nodes

import (
	"io"
	"os"

	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/registry"
)

// Type names of the builtin nodes.
const (
	TypeNode      = "node"
	TypeMerge     = "merge"
	TypeIncrement = "increment"
	TypeEnv       = "env"
	TypePrint     = "print"
	TypeGroup     = "group"
)

// Module implements the registry.Module interface for the builtin types.
type Module struct {
	// Out receives the output of print nodes. Defaults to os.Stdout.
	Out io.Writer
	// Environ lists the environment read by env nodes. Defaults to os.Environ.
	Environ func() []string
}

// Register registers every builtin type.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}

	r.MustRegister(&registry.NodeType{
		Name:        TypeNode,
		Description: "Passes data through unchanged.",
		New:         func() node.Behaviour { return node.Base{Name: TypeNode} },
	})
	r.MustRegister(&registry.NodeType{
		Name:        TypeMerge,
		Description: "References several nodes, later inputs overriding earlier ones.",
		New:         func() node.Behaviour { return &Merge{Base: node.Base{Name: TypeMerge}} },
	})
	r.MustRegister(&registry.NodeType{
		Name:        TypeIncrement,
		Description: "Adds 'by' to the 'value' of every flowing tree.",
		New:         func() node.Behaviour { return &Increment{Base: node.Base{Name: TypeIncrement}} },
	})
	r.MustRegister(&registry.NodeType{
		Name:        TypeEnv,
		Description: "Records environment variables under the 'env' branch.",
		New: func() node.Behaviour {
			return &Env{Base: node.Base{Name: TypeEnv}, environ: environ}
		},
	})
	r.MustRegister(&registry.NodeType{
		Name:        TypePrint,
		Description: "Writes every flowing tree to the output.",
		New:         func() node.Behaviour { return &Print{Base: node.Base{Name: TypePrint}, out: out} },
	})
	r.MustRegister(&registry.NodeType{
		Name:        TypeGroup,
		Description: "Creates 'count' child nodes on the Structure channel.",
		New:         func() node.Behaviour { return &Group{Base: node.Base{Name: TypeGroup}} },
	})
}
