package nodes

import (
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/node"
)

// Merge resolves several references by overlaying them in input order.
type Merge struct {
	node.Base
}

// Composite implements node.Compositor.
func (m *Merge) Composite(n *node.Node, trees []*datatree.Tree) (*datatree.Tree, error) {
	if len(trees) == 0 {
		return nil, node.ErrEmptyComposite
	}
	out := trees[0].Copy()
	for _, t := range trees[1:] {
		out.Overlay(t)
	}
	return out, nil
}
