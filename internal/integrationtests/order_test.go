package integrationtests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/registry"
	"github.com/vk/nodeweave/internal/testutil"
)

const diamondGrid = `
	node "recorder" "top" {}
	node "recorder" "left" {}
	node "recorder" "right" {}
	node "recorder" "bottom" {}
	connect {
		from = "top"
		to   = "left"
	}
	connect {
		from = "top"
		to   = "right"
	}
	connect {
		from = "left"
		to   = "bottom"
	}
	connect {
		from = "right"
		to   = "bottom"
	}
	evaluate {
		targets = ["bottom"]
	}
`

func TestDiamondRunsEachNodeOnceInDependencyOrder(t *testing.T) {
	rec := &testutil.RecorderModule{}
	result := testutil.RunIntegrationTest(t, map[string]string{"grid/main.hcl": diamondGrid}, testutil.Options{
		Modules: []registry.Module{rec},
	})

	require.NoError(t, result.Err)
	assert.Equal(t, []string{"top", "left", "right", "bottom"}, rec.Order())
	assert.Len(t, result.Results, 4)
}

func TestFailureStopsDownstream(t *testing.T) {
	rec := &testutil.RecorderModule{OnExecute: func(n *node.Node) error {
		if n.Name() == "left" {
			return errors.New("left failed")
		}
		return nil
	}}
	result := testutil.RunIntegrationTest(t, map[string]string{"grid/main.hcl": diamondGrid}, testutil.Options{
		Modules: []registry.Module{rec},
	})

	require.ErrorContains(t, result.Err, "left failed")
	assert.Equal(t, []string{"top", "left"}, rec.Order())
}
