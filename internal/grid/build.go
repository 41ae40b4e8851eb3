package grid

import (
	"context"
	"fmt"

	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/node"
)

// Build creates the definition's nodes and edges in g as one change. On
// failure that change is reverted.
func Build(ctx context.Context, g *graph.Graph, def *Definition) ([]*node.Node, error) {
	logger := ctxlog.FromContext(ctx)
	var created []*node.Node

	var steps []graph.Delta
	subID := g.OnDelta(func(d graph.Delta) { steps = append(steps, d) })

	err := g.Batch(func() error {
		for _, spec := range def.Nodes {
			var params *datatree.Tree
			if spec.Params != nil {
				params = datatree.FromMap("params", "", spec.Params)
			}
			n, err := g.CreateNodeWithParams(spec.Type, spec.Name, spec.UID, params)
			if err != nil {
				return err
			}
			created = append(created, n)
		}

		for _, c := range def.Connections {
			from, err := g.Node(c.From)
			if err != nil {
				return fmt.Errorf("connect %s -> %s: %w", c.From, c.To, err)
			}
			to, err := g.Node(c.To)
			if err != nil {
				return fmt.Errorf("connect %s -> %s: %w", c.From, c.To, err)
			}
			if err := g.ConnectNodesAt(from, to, c.FromChannel, c.ToChannel, c.Index); err != nil {
				return err
			}
		}
		return nil
	})
	g.Unsubscribe(subID)
	if err != nil {
		for i := len(steps) - 1; i >= 0; i-- {
			if rerr := g.RevertDelta(steps[i]); rerr != nil {
				logger.Error("Failed to revert partially built grid.", "error", rerr)
				break
			}
		}
		return nil, fmt.Errorf("building grid: %w", err)
	}

	logger.Info("Grid built.", "nodes", len(created), "connections", len(def.Connections))
	return created, nil
}

// Targets resolves the definition's targets against g. With no declared
// targets every node is a target.
func Targets(g *graph.Graph, def *Definition) ([]*node.Node, error) {
	return Resolve(g, def.Targets)
}

// Resolve looks up nodes by name or uid. An empty list selects every node.
func Resolve(g *graph.Graph, refs []string) ([]*node.Node, error) {
	if len(refs) == 0 {
		return g.Nodes(), nil
	}
	out := make([]*node.Node, 0, len(refs))
	for _, ref := range refs {
		n, err := g.Node(ref)
		if err != nil {
			return nil, fmt.Errorf("target '%s': %w", ref, err)
		}
		out = append(out, n)
	}
	return out, nil
}
