package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/app"
	"github.com/vk/nodeweave/internal/nodes"
	"github.com/vk/nodeweave/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Tree is one serialised tree of a result snapshot.
type Tree struct {
	UID  string         `json:"uid"`
	Data map[string]any `json:"data"`
}

// Snapshot is one serialised output snapshot.
type Snapshot struct {
	Trees []Tree      `json:"trees"`
	Edges [][2]string `json:"edges"`
}

// Results maps node uid to channel to the node's cached output.
type Results map[string]map[string]Snapshot

// Options tunes a harness run.
type Options struct {
	// Targets overrides the grid's evaluate blocks.
	Targets []string
	// Environ is the environment seen by env nodes. Defaults to none.
	Environ func() []string
	// Modules are registered next to the builtin node types.
	Modules []registry.Module
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Results   Results
	Printed   string
	LogOutput string
	Err       error
}

// RunIntegrationTest writes files below a temporary directory, runs the app
// on its grid/ subdirectory and decodes the printed results.
func RunIntegrationTest(t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, opts)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	gridDir := filepath.Join(tmpDir, "grid")
	require.NoError(t, os.Mkdir(gridDir, 0o755))

	// Tests pass paths relative to the root, e.g. "grid/main.hcl".
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	printed := &SafeBuffer{}
	environ := opts.Environ
	if environ == nil {
		environ = func() []string { return nil }
	}
	modules := append([]registry.Module{&nodes.Module{Out: printed, Environ: environ}}, opts.Modules...)

	cfg, err := app.NewConfig(app.Config{
		GridPath:  gridDir,
		Targets:   opts.Targets,
		LogLevel:  "debug",
		LogFormat: "text",
	})
	require.NoError(t, err)

	out, logs := &SafeBuffer{}, &SafeBuffer{}
	result := &HarnessResult{}
	testApp, err := app.NewApp(out, logs, cfg, modules...)
	if err == nil {
		err = testApp.Run(ctx)
	}
	result.Err = err
	result.Printed = printed.String()
	result.LogOutput = logs.String()

	if os.Getenv("NODEWEAVE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}

	if err == nil && out.String() != "" {
		require.NoError(t, json.Unmarshal([]byte(out.String()), &result.Results), "results are not valid JSON:\n%s", out.String())
	}
	return result
}
