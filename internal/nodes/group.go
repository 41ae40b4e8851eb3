package nodes

import (
	"fmt"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/node"
)

// CountKey is the number of children a group builds.
const CountKey = "count"

// Group builds 'count' child nodes when created, each connected to it on the
// Structure channel.
type Group struct {
	node.Base
}

// DefaultParams implements node.ParamDefaulter.
func (g *Group) DefaultParams(base *datatree.Tree) {
	base.Ensure(CountKey).SetValue(0)
}

// Setup implements graph.Setupper.
func (g *Group) Setup(gr *graph.Graph, n *node.Node) error {
	raw := n.ParamOr(CountKey, 0)
	count, ok := asInt(raw)
	if !ok || count < 0 {
		return fmt.Errorf("'%s' must be a non-negative integer, got %v", CountKey, raw)
	}
	for i := range count {
		child, err := gr.CreateNode(TypeNode, fmt.Sprintf("%s_%d", n.Name(), i), "")
		if err != nil {
			return err
		}
		if err := gr.ConnectNodesAt(n, child, channel.Structure, channel.Structure, i); err != nil {
			return err
		}
	}
	return nil
}
