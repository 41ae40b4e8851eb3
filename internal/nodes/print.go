package nodes

import (
	"fmt"
	"io"
	"sort"

	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/snapshot"
)

// Print writes every flowing tree when executed and passes the data on.
type Print struct {
	node.Base
	out io.Writer
}

// Execute implements node.Executor.
func (p *Print) Execute(n *node.Node, in *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if in.IsEmpty() {
		if _, err := fmt.Fprintf(p.out, "%s\n      (null)\n", n.Name()); err != nil {
			return nil, err
		}
		return snapshot.Empty(), nil
	}

	for _, tree := range in.Trees() {
		values := tree.Flatten()
		// Sort keys for consistent output
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if _, err := fmt.Fprintf(p.out, "%s <- %s\n", n.Name(), tree.UID()); err != nil {
			return nil, err
		}
		for _, k := range keys {
			if _, err := fmt.Fprintf(p.out, "      %s = %v\n", k, values[k]); err != nil {
				return nil, err
			}
		}
	}
	return in.Copy(), nil
}
