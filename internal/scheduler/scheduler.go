package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/event"
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/metrics"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/nodestore"
	"github.com/vk/nodeweave/internal/snapshot"
	"github.com/vk/nodeweave/internal/topologystore"
)

var tracer = otel.Tracer("nodeweave.scheduler")

// Graph is the part of graph.Graph the scheduler works against.
type Graph interface {
	Topology() topologystore.Reader[*node.Node]
	NodeInputMap(n *node.Node) map[channel.Channel][]graph.Tie
	OutputSnapshotForChannel(n *node.Node, ch channel.Channel) (*snapshot.Snapshot, error)
	NodeData(n *node.Node, ch channel.Channel) (*snapshot.Snapshot, bool)
	SetNodeData(n *node.Node, ch channel.Channel, out *snapshot.Snapshot)
	Outputs() nodestore.Store
	OnDelta(h func(graph.Delta)) string
	OnParamsChanged(h func(*node.Node)) string
	Unsubscribe(id string) bool
}

var _ Graph = (*graph.Graph)(nil)

// Scheduler evaluates nodes of one graph on demand.
type Scheduler struct {
	graph   Graph
	logger  *slog.Logger
	metrics *metrics.Metrics
	subIDs  []string

	mu        sync.Mutex
	dirty     map[string]bool
	executing bool
	current   *node.Node
	mutated   bool

	currentChanged event.Signal[*node.Node]
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithMetrics records evaluations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a scheduler and starts watching g for structural changes and
// param writes. A param write marks the node and everything downstream dirty.
func New(g Graph, opts ...Option) *Scheduler {
	s := &Scheduler{graph: g, dirty: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = ctxlog.OrDefault(s.logger)
	s.subIDs = []string{
		g.OnDelta(s.onDelta),
		g.OnParamsChanged(s.onParamsChanged),
	}
	return s
}

// Close stops watching the graph.
func (s *Scheduler) Close() {
	for _, id := range s.subIDs {
		s.graph.Unsubscribe(id)
	}
}

func (s *Scheduler) onParamsChanged(n *node.Node) {
	s.SetDirty(n, true, true)
}

func (s *Scheduler) onDelta(graph.Delta) {
	s.mu.Lock()
	if s.executing {
		s.mutated = true
	}
	s.mu.Unlock()
}

// IsDirty reports whether n must be recomputed. Nodes never marked are dirty.
func (s *Scheduler) IsDirty(n *node.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDirtyLocked(n.UID())
}

func (s *Scheduler) isDirtyLocked(uid string) bool {
	dirty, seen := s.dirty[uid]
	return !seen || dirty
}

// SetDirty marks n. With propagate, every node downstream of n through any
// edge receives the same value.
func (s *Scheduler) SetDirty(n *node.Node, dirty, propagate bool) {
	var descendants []string
	if propagate {
		descendants = s.graph.Topology().Descendants(n.UID())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[n.UID()] = dirty
	for _, uid := range descendants {
		s.dirty[uid] = dirty
	}
}

// CurrentNode returns the node being evaluated, or nil when idle.
func (s *Scheduler) CurrentNode() *node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Executing reports whether EvalNodes is running.
func (s *Scheduler) Executing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executing
}

// OnCurrentNodeChanged subscribes to the node being evaluated; nil is sent
// when a run ends. It returns an id for Unsubscribe.
func (s *Scheduler) OnCurrentNodeChanged(h func(*node.Node)) string {
	return s.currentChanged.Subscribe(h)
}

// Unsubscribe removes an OnCurrentNodeChanged subscription.
func (s *Scheduler) Unsubscribe(id string) bool {
	return s.currentChanged.Unsubscribe(id)
}

func (s *Scheduler) setCurrent(n *node.Node) {
	s.mu.Lock()
	s.current = n
	s.mu.Unlock()
	s.currentChanged.Emit(n)
}

// gatherFlow combines the Flow inputs of n. A tie reading its source's Flow
// output uses the cached result when one exists; anything else resolves live.
func (s *Scheduler) gatherFlow(n *node.Node) (*snapshot.Snapshot, error) {
	ties := s.graph.NodeInputMap(n)[channel.Flow]
	outs := make([]*snapshot.Snapshot, 0, len(ties))
	for _, tie := range ties {
		if tie.Channel == channel.Flow {
			if cached, ok := s.graph.NodeData(tie.Node, channel.Flow); ok {
				outs = append(outs, cached)
				continue
			}
		}
		out, err := s.graph.OutputSnapshotForChannel(tie.Node, tie.Channel)
		if err != nil {
			return nil, fmt.Errorf("reading %s output of %s: %w", tie.Channel, tie.Node, err)
		}
		outs = append(outs, out)
	}
	return snapshot.Merge(outs...), nil
}

// EvalNode executes n on its combined Flow inputs, caches the result as its
// Flow output and marks it clean. It does not check whether n is dirty.
func (s *Scheduler) EvalNode(ctx context.Context, n *node.Node) error {
	_, span := tracer.Start(ctx, "scheduler.EvalNode",
		trace.WithAttributes(
			attribute.String("node.uid", n.UID()),
			attribute.String("node.name", n.Name()),
			attribute.String("node.type", n.TypeName()),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := s.execute(n)
	s.metrics.ObserveNode(n.TypeName(), time.Since(start), err)
	if err != nil {
		execErr := &NodeExecutionError{UID: n.UID(), Name: n.Name(), Type: n.TypeName(), Err: err}
		s.graph.Outputs().SetError(n.UID(), execErr)
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		return execErr
	}

	s.graph.SetNodeData(n, channel.Flow, out)
	s.graph.Outputs().SetError(n.UID(), nil)
	s.SetDirty(n, false, false)
	span.SetStatus(codes.Ok, "")
	s.logger.Debug("Evaluated node.", "name", n.Name(), "uid", n.UID(), "trees", out.Len())
	return nil
}

func (s *Scheduler) execute(n *node.Node) (*snapshot.Snapshot, error) {
	in, err := s.gatherFlow(n)
	if err != nil {
		return nil, err
	}
	out, err := n.Execute(in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = snapshot.Empty()
	}
	return out, nil
}

// PlanQueue orders the targets and all of their ancestors so every node comes
// after everything it depends on. Nodes are grouped by topological
// generation; order within a generation follows insertion order. A target
// that is not a node of the graph fails with graph.ErrMissingNode.
func (s *Scheduler) PlanQueue(targets []*node.Node) ([]*node.Node, error) {
	topo := s.graph.Topology()

	members := make(map[string]struct{})
	var uids []string
	add := func(uid string) {
		if _, ok := members[uid]; !ok {
			members[uid] = struct{}{}
			uids = append(uids, uid)
		}
	}
	for _, t := range targets {
		if t == nil {
			return nil, fmt.Errorf("%w: nil evaluation target", graph.ErrMissingNode)
		}
		if live, ok := topo.Node(t.UID()); !ok || live != t {
			return nil, fmt.Errorf("%w: evaluation target %s is not in the graph", graph.ErrMissingNode, t)
		}
		add(t.UID())
		for _, uid := range topo.Ancestors(t.UID()) {
			add(uid)
		}
	}

	generations, err := topo.Subgraph(uids).TopologicalGenerations()
	if err != nil {
		if errors.Is(err, topologystore.ErrCycle) {
			return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, err)
		}
		return nil, err
	}

	queue := make([]*node.Node, 0, len(uids))
	for _, gen := range generations {
		for _, uid := range gen {
			if n, ok := topo.Node(uid); ok {
				queue = append(queue, n)
			}
		}
	}
	return queue, nil
}

// EvalNodes brings the targets up to date, evaluating every dirty node they
// depend on in dependency order.
func (s *Scheduler) EvalNodes(ctx context.Context, targets []*node.Node) (err error) {
	ctx, span := tracer.Start(ctx, "scheduler.EvalNodes",
		trace.WithAttributes(attribute.Int("targets", len(targets))),
	)
	defer span.End()
	defer func() {
		s.metrics.ObserveRun(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	targetUIDs := make([]string, len(targets))
	for i, t := range targets {
		targetUIDs[i] = t.UID()
	}

	queue, err := s.PlanQueue(targets)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.executing = true
	s.mutated = false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.executing = false
		s.mu.Unlock()
		s.setCurrent(nil)
	}()

	s.logger.Debug("Evaluation started.", "targets", len(targets), "queue", len(queue))
	evaluated := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := queue[0]
		queue = queue[1:]
		if !s.graph.Topology().HasNode(n.UID()) {
			continue
		}

		s.setCurrent(n)
		if !s.IsDirty(n) {
			continue
		}
		if err := s.EvalNode(ctx, n); err != nil {
			return err
		}
		evaluated++

		if s.takeMutation() {
			queue, err = s.PlanQueue(s.liveTargets(targetUIDs))
			if err != nil {
				return err
			}
			s.metrics.ObserveReplan()
			s.logger.Debug("Graph changed during evaluation, queue rebuilt.", "after", n.Name(), "queue", len(queue))
		}
	}
	s.logger.Debug("Evaluation finished.", "evaluated", evaluated)
	span.SetAttributes(attribute.Int("evaluated", evaluated))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Scheduler) takeMutation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutated := s.mutated
	s.mutated = false
	return mutated
}

// liveTargets maps target uids onto the records currently holding them,
// dropping targets that no longer exist.
func (s *Scheduler) liveTargets(uids []string) []*node.Node {
	topo := s.graph.Topology()
	live := make([]*node.Node, 0, len(uids))
	for _, uid := range uids {
		if n, ok := topo.Node(uid); ok {
			live = append(live, n)
		}
	}
	return live
}
