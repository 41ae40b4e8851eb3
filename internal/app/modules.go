package app

import (
	"io"

	"github.com/vk/nodeweave/internal/nodes"
	"github.com/vk/nodeweave/internal/registry"
)

// coreModules is the list of node type modules compiled into the binary.
// Print nodes write to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&nodes.Module{Out: outW},
	}
}
