package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) string {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		return p
	}
	a := write("a.hcl")
	b := write("nested/b.hcl")
	write("nested/readme.md")

	files, err := FindFilesByExtension(".hcl", dir, a, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = FindFilesByExtension("", dir)
	require.Error(t, err)
}
