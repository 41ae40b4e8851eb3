package inmemorystore

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/snapshot"
)

func tree(uid string, v int) *datatree.Tree {
	return datatree.FromMap("root", uid, map[string]any{"value": v})
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()

	// Output for a node that has not run yet
	_, ok := s.Output("a", channel.Flow)
	assert.False(t, ok)

	out := snapshot.Of(tree("a", 1))
	s.SetOutput("a", channel.Flow, out)

	got, ok := s.Output("a", channel.Flow)
	require.True(t, ok)
	assert.Same(t, out, got)

	_, ok = s.Output("a", channel.Params)
	assert.False(t, ok, "outputs are per channel")
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	assert.NoError(t, s.Error("a"))

	expectedErr := errors.New("a test error occurred")
	s.SetError("a", expectedErr)
	assert.Equal(t, expectedErr, s.Error("a"))

	s.SetError("a", nil)
	assert.NoError(t, s.Error("a"))
}

func TestDrop(t *testing.T) {
	s := New()
	s.SetOutput("a", channel.Flow, snapshot.Of(tree("a", 1)))
	s.SetOutput("a", channel.Params, snapshot.Of(tree("a", 1)))
	s.SetOutput("b", channel.Flow, snapshot.Of(tree("b", 2)))
	s.SetError("a", errors.New("boom"))

	s.Drop("a")

	assert.Equal(t, []string{"b"}, s.UIDs())
	assert.NoError(t, s.Error("a"))

	s.Clear()
	assert.Empty(t, s.UIDs())
}

func TestSerialise(t *testing.T) {
	s := New()
	s.SetOutput("a", channel.Flow, snapshot.Of(tree("a", 1)))

	got := s.Serialise()
	require.Contains(t, got, "a")
	require.Contains(t, got["a"], "Flow")
	flow := got["a"]["Flow"].(map[string]any)
	trees := flow["trees"].([]map[string]any)
	require.Len(t, trees, 1)
	assert.Equal(t, "a", trees[0]["uid"])
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("n%d", i)
			s.SetOutput(uid, channel.Flow, snapshot.Of(tree(uid, i)))
			_, _ = s.Output(uid, channel.Flow)
			_ = s.Serialise()
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.UIDs(), 50)
}
