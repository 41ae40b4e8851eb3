package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Flow returns the cached Flow output of the node with the given uid,
// failing the test when the node was not evaluated.
func Flow(t *testing.T, result *HarnessResult, uid string) Snapshot {
	t.Helper()
	channels, ok := result.Results[uid]
	require.True(t, ok, "node '%s' was not evaluated", uid)
	snap, ok := channels["Flow"]
	require.True(t, ok, "node '%s' has no Flow output", uid)
	return snap
}

// FlowValue returns a value from the tree owned by treeUID inside the Flow
// output of uid. key is a dotted path.
func FlowValue(t *testing.T, result *HarnessResult, uid, treeUID, key string) any {
	t.Helper()
	for _, tree := range Flow(t, result, uid).Trees {
		if tree.UID != treeUID {
			continue
		}
		v, ok := tree.Data[key]
		require.True(t, ok, "tree '%s' in the output of '%s' has no key '%s'", treeUID, uid, key)
		return v
	}
	require.Failf(t, "missing tree", "no tree '%s' in the Flow output of '%s'", treeUID, uid)
	return nil
}

// AssertNotEvaluated checks that uid has no cached output.
func AssertNotEvaluated(t *testing.T, result *HarnessResult, uid string) {
	t.Helper()
	_, ok := result.Results[uid]
	require.False(t, ok, "node '%s' was not expected to be evaluated", uid)
}
