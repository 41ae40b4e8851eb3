package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/grid"
	"github.com/vk/nodeweave/internal/uibridge"
)

// Run loads the grid, builds it into the graph, evaluates the targets and
// writes the serialised graph outputs to the app's output as JSON. The graph
// is cleared when Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("Shutdown failed.", "error", err)
		}
	}()

	stopWatch := a.metrics.WatchGraph(a.graph)
	defer stopWatch()

	if a.config.UIURL != "" {
		client, err := uibridge.Dial(ctx, uibridge.ClientConfig{URL: a.config.UIURL, Namespace: a.config.UINamespace})
		if err != nil {
			a.logger.Warn("UI bridge disabled.", "error", err)
		} else {
			defer client.Close()
			pub := uibridge.NewPublisher(a.graph, a.scheduler, client.Emit, a.logger)
			defer pub.Close()
		}
	}

	def, err := grid.Load(ctx, a.config.GridPath)
	if err != nil {
		return fmt.Errorf("failed to load grid: %w", err)
	}
	if len(def.Nodes) == 0 {
		a.logger.Warn("No nodes found in grid, execution not required.")
		return nil
	}

	if _, err := grid.Build(ctx, a.graph, def); err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	refs := def.Targets
	if len(a.config.Targets) > 0 {
		refs = a.config.Targets
	}
	targets, err := grid.Resolve(a.graph, refs)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Starting evaluation...", "nodes", a.graph.Len(), "targets", len(targets))
	if err := a.scheduler.EvalNodes(ctx, targets); err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("🏁 Evaluation finished.")

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.graph.Serialise()); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
