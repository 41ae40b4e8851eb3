// Package metrics holds the Prometheus collectors for graph evaluation.
// Collectors are registered on a caller-supplied registry rather than the
// global one, so several applications can live in one process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/nodeweave/internal/graph"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	NodeEvaluations *prometheus.CounterVec
	NodeDuration    *prometheus.HistogramVec
	Runs            *prometheus.CounterVec
	Replans         prometheus.Counter
	GraphNodes      prometheus.Gauge
	GraphEdges      prometheus.Gauge
	Changes         *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeweave_node_evaluations_total",
				Help: "Number of node evaluations by node type and result.",
			},
			[]string{"type", "result"},
		),
		NodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nodeweave_node_evaluation_duration_seconds",
				Help:    "Time taken to execute one node.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeweave_eval_runs_total",
				Help: "Number of evaluation runs by result.",
			},
			[]string{"result"},
		),
		Replans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nodeweave_eval_replans_total",
				Help: "Number of evaluation queues rebuilt after a structural change.",
			},
		),
		GraphNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nodeweave_graph_nodes",
				Help: "Number of nodes in the watched graph.",
			},
		),
		GraphEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nodeweave_graph_edges",
				Help: "Number of edges in the watched graph.",
			},
		),
		Changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeweave_graph_changes_total",
				Help: "Structural changes by kind.",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.NodeEvaluations, m.NodeDuration, m.Runs, m.Replans, m.GraphNodes, m.GraphEdges, m.Changes)
	return m
}

// ObserveNode records one node execution.
func (m *Metrics) ObserveNode(typeName string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.NodeEvaluations.WithLabelValues(typeName, result(err)).Inc()
	m.NodeDuration.WithLabelValues(typeName).Observe(d.Seconds())
}

// ObserveRun records the outcome of one evaluation run.
func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result(err)).Inc()
}

// ObserveReplan records a rebuilt queue.
func (m *Metrics) ObserveReplan() {
	if m == nil {
		return
	}
	m.Replans.Inc()
}

// WatchGraph keeps the graph gauges and change counters current. The
// returned function stops watching.
func (m *Metrics) WatchGraph(g *graph.Graph) func() {
	if m == nil {
		return func() {}
	}
	sync := func() {
		m.GraphNodes.Set(float64(g.Len()))
		m.GraphEdges.Set(float64(len(g.Edges())))
	}
	sync()
	id := g.OnDelta(func(d graph.Delta) {
		m.Changes.WithLabelValues("node_added").Add(float64(len(d.Nodes.Added)))
		m.Changes.WithLabelValues("node_removed").Add(float64(len(d.Nodes.Removed)))
		m.Changes.WithLabelValues("edge_added").Add(float64(len(d.Edges.Added)))
		m.Changes.WithLabelValues("edge_removed").Add(float64(len(d.Edges.Removed)))
		sync()
	})
	return func() { g.Unsubscribe(id) }
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
