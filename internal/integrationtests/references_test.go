package integrationtests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/testutil"
)

func TestReferenceInheritsParams(t *testing.T) {
	gridHCL := `
		node "increment" "base" {
			uid    = "it-ref-base"
			params = { value = 1, by = 5 }
		}
		node "increment" "ref" {
			uid = "it-ref-ref"
		}
		connect {
			from         = "base"
			to           = "ref"
			from_channel = "Params"
			to_channel   = "Params"
		}
		evaluate {
			targets = ["ref"]
		}
	`
	result := testutil.RunIntegrationTest(t, map[string]string{"grid/main.hcl": gridHCL}, testutil.Options{})

	require.NoError(t, result.Err)
	trees := testutil.Flow(t, result, "it-ref-ref").Trees
	require.Len(t, trees, 1)
	assert.Equal(t, 6.0, trees[0].Data["value"], "the reference increments by the base's 'by'")
}

func TestMergeCompositesInIndexOrder(t *testing.T) {
	gridHCL := `
		node "node" "defaults" {
			params = { host = "localhost", port = 80 }
		}
		node "node" "site" {
			params = { port = 8080 }
		}
		node "merge" "merged" {
			uid = "it-merge-m"
		}
		connect {
			from         = "site"
			to           = "merged"
			from_channel = "Params"
			to_channel   = "Params"
			index        = 1
		}
		connect {
			from         = "defaults"
			to           = "merged"
			from_channel = "Params"
			to_channel   = "Params"
			index        = 0
		}
		evaluate {
			targets = ["merged"]
		}
	`
	result := testutil.RunIntegrationTest(t, map[string]string{"grid/main.hcl": gridHCL}, testutil.Options{})

	require.NoError(t, result.Err)
	trees := testutil.Flow(t, result, "it-merge-m").Trees
	require.Len(t, trees, 1)
	assert.Equal(t, "localhost", trees[0].Data["host"])
	assert.Equal(t, 8080.0, trees[0].Data["port"], "index 1 overrides index 0")
}
