package nodes

import (
	"strings"

	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/node"
)

// Keys used by Env.
const (
	PrefixKey = "prefix"
	EnvBranch = "env"
)

// Env copies each flowing tree and records the environment variables whose
// names start with its 'prefix' param under the 'env' branch.
type Env struct {
	node.Base
	environ func() []string
}

// DefaultParams implements node.ParamDefaulter.
func (e *Env) DefaultParams(base *datatree.Tree) {
	base.Ensure(PrefixKey).SetValue("")
}

// TransformData implements node.DataTransformer.
func (e *Env) TransformData(n *node.Node, tree *datatree.Tree) (*datatree.Tree, error) {
	prefix, _ := n.ParamOr(PrefixKey, "").(string)

	out := tree.Copy()
	branch := out.Ensure(EnvBranch)
	for _, kv := range e.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		branch.Ensure(name).SetValue(value)
	}
	return out, nil
}
