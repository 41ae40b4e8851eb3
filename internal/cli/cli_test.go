package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("full flag set", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{
			"-g", "grid.hcl",
			"-target", "A",
			"-target", "B, C",
			"-log-level", "DEBUG",
			"-log-format", "json",
			"-healthcheck-port", "8080",
			"-ui-url", "http://localhost:3000/socket.io/",
			"-ui-namespace", "/graph",
		}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "grid.hcl", cfg.GridPath)
		assert.Equal(t, []string{"A", "B", "C"}, cfg.Targets)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 8080, cfg.HealthcheckPort)
		assert.Equal(t, "http://localhost:3000/socket.io/", cfg.UIURL)
		assert.Equal(t, "/graph", cfg.UINamespace)
	})

	t.Run("positional grid path", func(t *testing.T) {
		cfg, exit, err := Parse([]string{"dir"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "dir", cfg.GridPath)
		assert.Empty(t, cfg.Targets)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("no grid prints usage", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	testCases := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope", "grid.hcl"}},
		{"bad log format", []string{"-log-format", "xml", "grid.hcl"}},
		{"bad log level", []string{"-log-level", "loud", "grid.hcl"}},
		{"bad ui url", []string{"-ui-url", "nohost", "grid.hcl"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
