package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/metrics"
	"github.com/vk/nodeweave/internal/registry"
	"github.com/vk/nodeweave/internal/scheduler"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx    context.Context
	outW   io.Writer
	logger *slog.Logger
	config *Config

	registry     *registry.Registry
	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics
	graph        *graph.Graph
	scheduler    *scheduler.Scheduler

	httpServer *http.Server
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW. Each App has its own logger, registry and metrics.
// With no modules the builtin node types are registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg := registry.New().Use(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Names())

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)
	g := graph.New("main", reg, graph.WithLogger(logger))
	sched := scheduler.New(g, scheduler.WithLogger(logger), scheduler.WithMetrics(m))

	return &App{
		ctx:          ctx,
		outW:         outW,
		logger:       logger,
		config:       cfg,
		registry:     reg,
		promRegistry: promRegistry,
		metrics:      m,
		graph:        g,
		scheduler:    sched,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Graph returns the application's graph.
func (a *App) Graph() *graph.Graph {
	return a.graph
}

// Scheduler returns the application's scheduler.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Close releases the graph and stops background services.
func (a *App) Close() error {
	a.scheduler.Close()
	a.graph.Clear()
	if err := a.closeHealthCheckServer(); err != nil {
		return fmt.Errorf("closing health check server: %w", err)
	}
	return nil
}
