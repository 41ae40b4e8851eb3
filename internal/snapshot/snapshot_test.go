package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/datatree"
)

func tree(t *testing.T, uid string, value any) *datatree.Tree {
	t.Helper()
	tr := datatree.NewRoot("root", uid)
	require.NoError(t, tr.Set("value", value))
	return tr
}

type owner string

func (o owner) UID() string { return string(o) }

func TestCombine_Flattens(t *testing.T) {
	a := New([]*datatree.Tree{tree(t, "a", 1)}, EdgePair{From: "a", To: "b"})
	b := tree(t, "b", 2)
	c := tree(t, "c", 3)

	combined, err := Combine([]any{a, []any{b, []*datatree.Tree{c}}}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, combined.UIDs())
	assert.Equal(t, []EdgePair{{From: "a", To: "b"}}, combined.Edges())
}

func TestCombine_UnsupportedPart(t *testing.T) {
	_, err := Combine(42)
	require.ErrorIs(t, err, ErrUnsupportedPart)
	assert.ErrorContains(t, err, "int")
}

func TestCombine_IsAssociative(t *testing.T) {
	a := New([]*datatree.Tree{tree(t, "a", 1)}, EdgePair{From: "a", To: "b"})
	b := New([]*datatree.Tree{tree(t, "b", 2)}, EdgePair{From: "b", To: "c"})
	c := New([]*datatree.Tree{tree(t, "c", 3)}, EdgePair{From: "a", To: "c"})

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))
	flat := Merge(a, b, c)

	for _, s := range []*Snapshot{left, right} {
		assert.Equal(t, flat.UIDs(), s.UIDs())
		assert.Equal(t, flat.Edges(), s.Edges())
	}

	reordered := Merge(c, a, b)
	assert.Equal(t, flat.UIDs(), reordered.UIDs(), "membership is order independent")
	assert.Equal(t, flat.Edges(), reordered.Edges())
}

func TestCombine_CopiesNeverAlias(t *testing.T) {
	src := New([]*datatree.Tree{tree(t, "a", 1)})
	combined := Merge(src)

	got, ok := combined.Get("a")
	require.True(t, ok)
	require.NoError(t, got.Set("value", 100))

	orig, _ := src.Get("a")
	v, _ := orig.Get("value")
	assert.Equal(t, 1, v)
	assert.NotSame(t, orig, got)
}

func TestOf_CopiesTrees(t *testing.T) {
	tr := tree(t, "x", 1)
	s := Of(tr)
	got, ok := s.Get("x")
	require.True(t, ok)
	assert.NotSame(t, tr, got)
	assert.True(t, tr.Equal(got))
}

func TestLookup(t *testing.T) {
	s := New([]*datatree.Tree{tree(t, "a", 1)})

	byUID, ok := s.Get("a")
	require.True(t, ok)
	byOwner, ok := s.GetFor(owner("a"))
	require.True(t, ok)
	assert.Same(t, byUID, byOwner)

	_, ok = s.GetFor(nil)
	assert.False(t, ok)

	fallback := datatree.NewRoot("fallback", "")
	assert.Same(t, fallback, s.GetOr("missing", fallback))
	assert.Nil(t, s.GetOr("missing", nil))
	assert.Same(t, byUID, s.GetOr("a", fallback))
}

func TestIndexMatchesTrees(t *testing.T) {
	s := Merge(New([]*datatree.Tree{tree(t, "a", 1), tree(t, "b", 2)}))
	var uids []string
	for _, tr := range s.Trees() {
		uids = append(uids, tr.UID())
	}
	assert.ElementsMatch(t, uids, s.UIDs())
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.IsEmpty())
	assert.True(t, Empty().IsEmpty())
	assert.Nil(t, Empty().First())
}

func TestSerialise(t *testing.T) {
	s := New([]*datatree.Tree{tree(t, "a", 1)}, EdgePair{From: "a", To: "a"})
	out := s.Serialise()

	trees := out["trees"].([]map[string]any)
	require.Len(t, trees, 1)
	assert.Equal(t, "a", trees[0]["uid"])
	assert.Equal(t, map[string]any{"value": 1}, trees[0]["data"])
	assert.Equal(t, [][2]string{{"a", "a"}}, out["edges"])
}

func TestResultGraph(t *testing.T) {
	s := New(
		[]*datatree.Tree{tree(t, "a", 1), tree(t, "b", 2), tree(t, "lone", 3)},
		EdgePair{From: "a", To: "b"},
		EdgePair{From: "b", To: "outside"},
	)

	g := s.ResultGraph()
	assert.Equal(t, []string{"a", "b", "lone", "outside"}, g.NodeUIDs())
	assert.Len(t, g.Edges(), 2)
	assert.Equal(t, []string{"b"}, g.Successors("a"))
	assert.Equal(t, []string{"a", "b"}, g.Ancestors("outside"))

	generations, err := g.TopologicalGenerations()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "lone"}, {"b"}, {"outside"}}, generations)

	t.Run("independent of the snapshot", func(t *testing.T) {
		g.AddNode(Vertex("extra"))
		assert.False(t, s.HasEdge(EdgePair{From: "a", To: "extra"}))
		assert.Len(t, s.ResultGraph().NodeUIDs(), 4)
	})
}
