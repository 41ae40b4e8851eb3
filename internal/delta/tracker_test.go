package delta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/inmemorytopology"
	"github.com/vk/nodeweave/internal/topologystore"
)

type vertex string

func (v vertex) UID() string { return string(v) }

func flow(from, to string) topologystore.Edge {
	return topologystore.NewEdge(from, to, channel.Flow, channel.Flow, topologystore.UnorderedIndex)
}

type recorder struct {
	raw   []Delta[vertex]
	nodes []NodeDelta[vertex]
	edges []EdgeDelta
}

func newTracked(t *testing.T) (*Tracker[vertex], *recorder) {
	t.Helper()
	tr := NewTracker[vertex](inmemorytopology.New[vertex]())
	rec := &recorder{}
	tr.Raw.Subscribe(func(d Delta[vertex]) { rec.raw = append(rec.raw, d) })
	tr.NodesChanged.Subscribe(func(d NodeDelta[vertex]) { rec.nodes = append(rec.nodes, d) })
	tr.EdgesChanged.Subscribe(func(d EdgeDelta) { rec.edges = append(rec.edges, d) })
	return tr, rec
}

func TestTrackerEmitsPerPrimitive(t *testing.T) {
	tr, rec := newTracked(t)

	tr.AddNodes("a", "b")
	require.NoError(t, tr.AddEdge(flow("a", "b")))
	require.NoError(t, tr.RemoveNode("a"))

	require.Len(t, rec.nodes, 2)
	assert.Equal(t, []string{"a", "b"}, rec.nodes[0].AddedUIDs())
	assert.Equal(t, []string{"a"}, rec.nodes[1].RemovedUIDs())

	require.Len(t, rec.edges, 2)
	assert.Len(t, rec.edges[0].Added, 1)
	assert.Len(t, rec.edges[1].Removed, 1, "removing a node reports its incident edges")
	assert.Len(t, rec.raw, 3)
}

func TestTrackerNoChangeNoEvent(t *testing.T) {
	tr, rec := newTracked(t)
	tr.AddNode("a")
	tr.AddNode("a")
	tr.RemoveNodes("missing")
	require.Error(t, tr.RemoveEdge(flow("a", "a").Key))

	assert.Len(t, rec.nodes, 1)
	assert.Empty(t, rec.edges)
	assert.Len(t, rec.raw, 1)
}

func TestTrackerPauseCoalesces(t *testing.T) {
	tr, rec := newTracked(t)

	tr.Pause()
	tr.AddNode("a")
	tr.Pause()
	tr.AddNode("b")
	require.NoError(t, tr.AddEdge(flow("a", "b")))
	tr.Resume(true)
	assert.Empty(t, rec.nodes, "nested resume must not flush")
	tr.AddNode("c")
	tr.Resume(true)

	require.Len(t, rec.nodes, 1)
	assert.Equal(t, []string{"a", "b", "c"}, rec.nodes[0].AddedUIDs())
	require.Len(t, rec.edges, 1)
	assert.Len(t, rec.raw, 4, "raw stream fires while paused")
	assert.False(t, tr.Paused())
}

func TestTrackerCollapse(t *testing.T) {
	tr, rec := newTracked(t)
	tr.AddNodes("x", "y")

	tr.Pause()
	tr.AddNode("a")
	mark := tr.Mark()
	tr.AddNode("tmp")
	require.NoError(t, tr.AddEdge(flow("x", "tmp")))
	require.NoError(t, tr.AddEdge(flow("x", "y")))
	require.NoError(t, tr.RemoveNode("tmp"))
	require.NoError(t, tr.RemoveNode("y"))
	tr.Collapse(mark)
	tr.Resume(true)

	require.Len(t, rec.nodes, 2)
	last := rec.nodes[1]
	assert.Equal(t, []string{"a"}, last.AddedUIDs())
	assert.Equal(t, []string{"y"}, last.RemovedUIDs())
	assert.Empty(t, rec.edges, "edges added and removed after the mark cancel out")
	assert.Len(t, rec.raw, 7, "raw stream keeps every primitive")

	t.Run("outside a region does nothing", func(t *testing.T) {
		before := len(rec.nodes)
		m := tr.Mark()
		tr.AddNode("z")
		tr.Collapse(m)
		assert.Len(t, rec.nodes, before+1)
	})
}

func TestTrackerResumeWithoutEmitDiscards(t *testing.T) {
	tr, rec := newTracked(t)
	tr.Pause()
	tr.AddNode("a")
	tr.Resume(false)
	tr.Resume(true)

	assert.Empty(t, rec.nodes)
	assert.True(t, tr.View().HasNode("a"))
	_, mutable := tr.View().(topologystore.Store[vertex])
	assert.False(t, mutable)
}

func TestBatchFlushesOnError(t *testing.T) {
	tr, rec := newTracked(t)
	boom := errors.New("boom")
	err := tr.Batch(func() error {
		tr.AddNode("a")
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, rec.nodes, 1)
}

func TestCombine(t *testing.T) {
	nodes := CombineNodeDeltas([]NodeDelta[vertex]{
		{Added: map[string]vertex{"a": "a"}},
		{Added: map[string]vertex{"b": "b"}, Removed: map[string]vertex{"a": "a"}},
	})
	assert.Equal(t, []string{"a", "b"}, nodes.AddedUIDs())
	assert.Equal(t, []string{"a"}, nodes.RemovedUIDs())

	ab := flow("a", "b")
	edges := CombineEdgeDeltas([]EdgeDelta{
		{Added: map[topologystore.EdgeKey]topologystore.EdgeAttrs{ab.Key: ab.Attrs}},
		{Removed: map[topologystore.EdgeKey]topologystore.EdgeAttrs{ab.Key: ab.Attrs}},
	})
	assert.Equal(t, []topologystore.Edge{ab}, edges.AddedEdges())
	assert.Equal(t, []topologystore.Edge{ab}, edges.RemovedEdges())
}

func TestApplyAndRevert(t *testing.T) {
	tr, rec := newTracked(t)
	tr.AddNodes("a", "b")
	require.NoError(t, tr.AddEdge(flow("a", "b")))

	var change Delta[vertex]
	id := tr.Raw.Subscribe(func(d Delta[vertex]) { change = d })
	require.NoError(t, tr.RemoveNode("b"))
	tr.Raw.Unsubscribe(id)

	rec.nodes = nil
	require.NoError(t, tr.Revert(change))
	assert.Equal(t, []string{"a", "b"}, tr.View().NodeUIDs())
	assert.Len(t, tr.View().Edges(), 1)
	require.Len(t, rec.nodes, 1, "revert is coalesced")

	require.NoError(t, tr.Apply(change))
	assert.Equal(t, []string{"a"}, tr.View().NodeUIDs())
	assert.Empty(t, tr.View().Edges())
}
