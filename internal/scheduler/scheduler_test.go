package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/metrics"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/registry"
	"github.com/vk/nodeweave/internal/snapshot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recording executes by calling hook, then passing its input through.
type recording struct {
	node.Base
	hook func(n *node.Node) error
}

func (r *recording) Execute(n *node.Node, in *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if r.hook != nil {
		if err := r.hook(n); err != nil {
			return nil, err
		}
	}
	if in.IsEmpty() {
		p, err := n.Params()
		if err != nil {
			return nil, err
		}
		return snapshot.Of(p), nil
	}
	return snapshot.Merge(in), nil
}

type fixture struct {
	g     *graph.Graph
	s     *Scheduler
	order []string
	hooks map[string]func(n *node.Node) error
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{hooks: make(map[string]func(n *node.Node) error)}

	reg := registry.New()
	reg.MustRegister(&registry.NodeType{Name: "rec", New: func() node.Behaviour {
		return &recording{Base: node.Base{Name: "rec"}, hook: func(n *node.Node) error {
			f.order = append(f.order, n.Name())
			if h, ok := f.hooks[n.Name()]; ok {
				return h(n)
			}
			return nil
		}}
	}})

	f.g = graph.New("sched", reg)
	f.s = New(f.g, opts...)
	t.Cleanup(func() {
		f.s.Close()
		f.g.Clear()
	})
	return f
}

func (f *fixture) create(t *testing.T, names ...string) []*node.Node {
	t.Helper()
	out := make([]*node.Node, len(names))
	for i, name := range names {
		n, err := f.g.CreateNode("rec", name, "")
		require.NoError(t, err)
		out[i] = n
	}
	return out
}

func (f *fixture) connect(t *testing.T, from, to *node.Node) {
	t.Helper()
	require.NoError(t, f.g.ConnectNodes(from, to, channel.Flow, channel.Flow))
}

func (f *fixture) chain(t *testing.T) (a, b, c *node.Node) {
	t.Helper()
	ns := f.create(t, "A", "B", "C")
	a, b, c = ns[0], ns[1], ns[2]
	f.connect(t, a, b)
	f.connect(t, b, c)
	return a, b, c
}

func TestDefaultDirty(t *testing.T) {
	f := newFixture(t)
	n := f.create(t, "X")[0]
	assert.True(t, f.s.IsDirty(n))
}

func TestSetDirtyPropagates(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.chain(t)
	other := f.create(t, "other")[0]

	for _, n := range []*node.Node{a, b, c, other} {
		f.s.SetDirty(n, false, false)
	}

	f.s.SetDirty(b, true, true)
	assert.False(t, f.s.IsDirty(a))
	assert.True(t, f.s.IsDirty(b))
	assert.True(t, f.s.IsDirty(c))
	assert.False(t, f.s.IsDirty(other))

	f.s.SetDirty(a, false, true)
	assert.False(t, f.s.IsDirty(c))
}

func TestLinearEvaluation(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.chain(t)
	require.NoError(t, a.SetParam("value", 1))

	var current []*node.Node
	f.s.OnCurrentNodeChanged(func(n *node.Node) { current = append(current, n) })

	require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c}))

	assert.Equal(t, []string{"A", "B", "C"}, f.order)
	for _, n := range []*node.Node{a, b, c} {
		assert.False(t, f.s.IsDirty(n), n.Name())
	}
	assert.Equal(t, []*node.Node{a, b, c, nil}, current)
	assert.Nil(t, f.s.CurrentNode())
	assert.False(t, f.s.Executing())

	out, ok := f.g.NodeData(c, channel.Flow)
	require.True(t, ok)
	tree, ok := out.GetFor(a)
	require.True(t, ok, "A's data flows through to C")
	v, _ := tree.Get("value")
	assert.Equal(t, 1, v)

	t.Run("clean nodes are not re-evaluated", func(t *testing.T) {
		f.order = nil
		require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c}))
		assert.Empty(t, f.order)

		f.s.SetDirty(b, true, true)
		require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c}))
		assert.Equal(t, []string{"B", "C"}, f.order)
	})
}

func TestPlanQueue(t *testing.T) {
	f := newFixture(t)
	ns := f.create(t, "A", "B", "C", "D", "unrelated")
	a, b, c, d := ns[0], ns[1], ns[2], ns[3]
	f.connect(t, a, c)
	f.connect(t, b, c)
	f.connect(t, c, d)

	queue, err := f.s.PlanQueue([]*node.Node{d})
	require.NoError(t, err)
	var names []string
	for _, n := range queue {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, names)
}

func TestParamWriteInvalidatesDownstream(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.chain(t)
	other := f.create(t, "other")[0]
	require.NoError(t, a.SetParam("value", 1))
	require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c, other}))

	f.order = nil
	require.NoError(t, a.SetParam("value", 2))
	assert.True(t, f.s.IsDirty(a))
	assert.True(t, f.s.IsDirty(b))
	assert.True(t, f.s.IsDirty(c))
	assert.False(t, f.s.IsDirty(other))

	require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c}))
	assert.Equal(t, []string{"A", "B", "C"}, f.order)

	out, ok := f.g.NodeData(c, channel.Flow)
	require.True(t, ok)
	tree, ok := out.GetFor(a)
	require.True(t, ok)
	v, _ := tree.Get("value")
	assert.Equal(t, 2, v)

	t.Run("write midway only reruns what follows", func(t *testing.T) {
		f.order = nil
		require.NoError(t, b.SetParam("label", "mid"))
		require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c}))
		assert.Equal(t, []string{"B", "C"}, f.order)
	})

	t.Run("closed scheduler stops listening", func(t *testing.T) {
		f.s.Close()
		require.NoError(t, a.SetParam("value", 3))
		assert.False(t, f.s.IsDirty(a))
	})
}

func TestMissingTargets(t *testing.T) {
	f := newFixture(t)
	_, _, c := f.chain(t)

	stray, err := node.New(node.Base{Name: "rec"}, "stray", "")
	require.NoError(t, err)
	t.Cleanup(stray.Release)

	t.Run("never added", func(t *testing.T) {
		err := f.s.EvalNodes(context.Background(), []*node.Node{stray})
		require.ErrorIs(t, err, graph.ErrMissingNode)
		assert.Contains(t, err.Error(), stray.UID())
		assert.Empty(t, f.order)
	})

	t.Run("nil target", func(t *testing.T) {
		_, err := f.s.PlanQueue([]*node.Node{nil})
		require.ErrorIs(t, err, graph.ErrMissingNode)
	})

	t.Run("removed before evaluation", func(t *testing.T) {
		require.NoError(t, f.g.RemoveNode(c))
		err := f.s.EvalNodes(context.Background(), []*node.Node{c})
		require.ErrorIs(t, err, graph.ErrMissingNode)
		assert.Empty(t, f.order)
	})
}

func TestMutationDuringEvaluation(t *testing.T) {
	f := newFixture(t, WithMetrics(metrics.New(prometheus.NewRegistry())))
	_, b, c := f.chain(t)

	var d *node.Node
	f.hooks["B"] = func(*node.Node) error {
		var err error
		d, err = f.g.CreateNode("rec", "D", "")
		if err != nil {
			return err
		}
		return f.g.ConnectNodes(c, d, channel.Flow, channel.Flow)
	}

	require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c}))

	assert.Equal(t, []string{"A", "B", "C"}, f.order)
	require.NotNil(t, d)
	assert.True(t, f.s.IsDirty(d), "D is not upstream of the target")
	assert.False(t, f.s.IsDirty(b))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.s.metrics.Replans))
}

func TestRegeneratedNodeKeepsCleanState(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.chain(t)

	// B replaces A with a new record carrying the same uid.
	uid := a.UID()
	f.hooks["B"] = func(*node.Node) error {
		delete(f.hooks, "B")
		return f.g.Batch(func() error {
			old, err := f.g.Node(uid)
			if err != nil {
				return err
			}
			if err := f.g.RemoveNode(old); err != nil {
				return err
			}
			regen, err := f.g.CreateNode("rec", "A", uid)
			if err != nil {
				return err
			}
			return f.g.ConnectNodes(regen, b, channel.Flow, channel.Flow)
		})
	}

	require.NoError(t, f.s.EvalNodes(context.Background(), []*node.Node{c}))
	assert.Equal(t, []string{"A", "B", "C"}, f.order)
}

func TestCycleAbortsBeforeExecution(t *testing.T) {
	f := newFixture(t)
	ns := f.create(t, "A", "B")
	a, b := ns[0], ns[1]
	f.connect(t, a, b)
	f.connect(t, b, a)

	err := f.s.EvalNodes(context.Background(), []*node.Node{b})
	require.ErrorIs(t, err, ErrCyclicDependency)
	assert.Empty(t, f.order)
	assert.True(t, f.s.IsDirty(a))
	assert.True(t, f.s.IsDirty(b))
}

func TestExecutionFailureKeepsPartialResults(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.chain(t)
	boom := errors.New("boom")
	f.hooks["B"] = func(*node.Node) error { return boom }

	err := f.s.EvalNodes(context.Background(), []*node.Node{c})
	require.ErrorIs(t, err, ErrNodeExecution)
	require.ErrorIs(t, err, boom)

	var execErr *NodeExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, b.UID(), execErr.UID)
	assert.Equal(t, "B", execErr.Name)

	_, cached := f.g.NodeData(a, channel.Flow)
	assert.True(t, cached, "A's output is committed")
	assert.False(t, f.s.IsDirty(a))
	assert.True(t, f.s.IsDirty(b))
	assert.ErrorIs(t, f.g.Outputs().Error(b.UID()), boom)
	assert.Equal(t, []string{"A", "B"}, f.order)
	assert.False(t, f.s.Executing())
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t)
	_, _, c := f.chain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.s.EvalNodes(ctx, []*node.Node{c})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.order)
}

func TestMutationOutsideEvaluationIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A")
	assert.False(t, f.s.takeMutation())
}

func TestEvaluationSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	// The package tracer delegates to the first provider installed globally.
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t)
	_, b, _ := f.chain(t)
	f.hooks["B"] = func(*node.Node) error { return errors.New("boom") }

	require.Error(t, f.s.EvalNodes(context.Background(), []*node.Node{b}))

	var names []string
	var failed []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
		if s.Status().Code == codes.Error {
			failed = append(failed, s.Name())
		}
	}
	assert.Equal(t, []string{"scheduler.EvalNode", "scheduler.EvalNode", "scheduler.EvalNodes"}, names)
	assert.Equal(t, []string{"scheduler.EvalNode", "scheduler.EvalNodes"}, failed)
}
