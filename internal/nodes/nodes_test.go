package nodes_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/nodes"
	"github.com/vk/nodeweave/internal/registry"
	"github.com/vk/nodeweave/internal/snapshot"
)

func newGraph(t *testing.T, m *nodes.Module) *graph.Graph {
	t.Helper()
	g := graph.New("nodes", registry.New().Use(m))
	t.Cleanup(g.Clear)
	return g
}

func create(t *testing.T, g *graph.Graph, typeName, name string, params map[string]any) *node.Node {
	t.Helper()
	var tree *datatree.Tree
	if params != nil {
		tree = datatree.FromMap("params", "", params)
	}
	n, err := g.CreateNodeWithParams(typeName, name, "", tree)
	require.NoError(t, err)
	return n
}

func TestModuleRegistersEveryType(t *testing.T) {
	r := registry.New().Use(&nodes.Module{})
	assert.Equal(t, []string{"env", "group", "increment", "merge", "node", "print"}, r.Names())
}

func TestMerge(t *testing.T) {
	g := newGraph(t, &nodes.Module{})
	a := create(t, g, nodes.TypeNode, "A", map[string]any{"x": 1, "y": 1})
	b := create(t, g, nodes.TypeNode, "B", map[string]any{"y": 2})
	m := create(t, g, nodes.TypeMerge, "M", nil)
	require.NoError(t, g.ConnectNodesAt(a, m, channel.Params, channel.Params, 0))
	require.NoError(t, g.ConnectNodesAt(b, m, channel.Params, channel.Params, 1))

	p, err := m.Params()
	require.NoError(t, err)
	x, _ := p.Get("x")
	y, _ := p.Get("y")
	assert.Equal(t, 1, x)
	assert.Equal(t, 2, y, "later input wins")
}

func TestIncrement(t *testing.T) {
	g := newGraph(t, &nodes.Module{})

	t.Run("own params without inputs", func(t *testing.T) {
		n := create(t, g, nodes.TypeIncrement, "solo", map[string]any{"value": 1, "by": 2})
		out, err := n.Execute(snapshot.Empty())
		require.NoError(t, err)
		v, _ := out.First().Get(nodes.ValueKey)
		assert.Equal(t, 3, v)
	})

	t.Run("flowing trees", func(t *testing.T) {
		src := create(t, g, nodes.TypeNode, "src", map[string]any{"value": 1.5})
		inc := create(t, g, nodes.TypeIncrement, "inc", nil)
		require.NoError(t, g.ConnectNodes(src, inc, channel.Flow, channel.Flow))

		out, err := inc.OutputFlowData()
		require.NoError(t, err)
		tree, ok := out.GetFor(src)
		require.True(t, ok)
		v, _ := tree.Get(nodes.ValueKey)
		assert.Equal(t, 2.5, v)
	})

	t.Run("non-numeric value", func(t *testing.T) {
		n := create(t, g, nodes.TypeIncrement, "bad", map[string]any{"value": "x"})
		_, err := n.Execute(snapshot.Empty())
		require.Error(t, err)
	})
}

func TestEnv(t *testing.T) {
	environ := func() []string {
		return []string{"APP_HOST=localhost", "APP_PORT=80", "HOME=/root", "BROKEN"}
	}
	g := newGraph(t, &nodes.Module{Environ: environ})
	n := create(t, g, nodes.TypeEnv, "env", map[string]any{"prefix": "APP_"})

	out, err := n.Execute(snapshot.Empty())
	require.NoError(t, err)
	branch := out.First().Branch(nodes.EnvBranch)
	require.NotNil(t, branch)
	assert.Equal(t, []string{"APP_HOST", "APP_PORT"}, branch.Keys())
	assert.Equal(t, "80", branch.Branch("APP_PORT").Value())
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	g := newGraph(t, &nodes.Module{Out: &buf})
	src := create(t, g, nodes.TypeNode, "src", map[string]any{"b": 2, "a": 1})
	p := create(t, g, nodes.TypePrint, "out", nil)
	require.NoError(t, g.ConnectNodes(src, p, channel.Flow, channel.Flow))

	in, err := g.IncomingSnapshotForChannel(p, channel.Flow)
	require.NoError(t, err)
	out, err := p.Execute(in)
	require.NoError(t, err)

	assert.Equal(t, in.UIDs(), out.UIDs(), "data passes through")
	assert.Contains(t, buf.String(), "out <- "+src.UID())
	assert.Contains(t, buf.String(), "      a = 1\n      b = 2\n")

	t.Run("empty input", func(t *testing.T) {
		buf.Reset()
		out, err := p.Execute(snapshot.Empty())
		require.NoError(t, err)
		assert.True(t, out.IsEmpty())
		assert.Contains(t, buf.String(), "(null)")
	})
}

func TestGroup(t *testing.T) {
	g := newGraph(t, &nodes.Module{})
	nodeChanges := 0
	g.OnNodesChanged(func(graph.NodeDelta) { nodeChanges++ })

	grp := create(t, g, nodes.TypeGroup, "grp", map[string]any{"count": 3})

	children := g.DestNodesForChannel(grp, channel.Structure)
	require.Len(t, children, 3)
	assert.Equal(t, "grp_0", children[0].Name())
	assert.Equal(t, "grp_2", children[2].Name())
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, 1, nodeChanges, "group and children arrive as one change")

	t.Run("invalid count rolls back", func(t *testing.T) {
		_, err := g.CreateNodeWithParams(nodes.TypeGroup, "bad", "", datatree.FromMap("params", "", map[string]any{"count": -1}))
		require.Error(t, err)
		assert.Equal(t, 4, g.Len())
	})
}
