package nodes

import (
	"fmt"

	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/node"
)

// Param keys read by Increment.
const (
	ValueKey = "value"
	ByKey    = "by"
)

// Increment adds its 'by' param to the 'value' of every flowing tree. Trees
// without a value start from zero.
type Increment struct {
	node.Base
}

// DefaultParams implements node.ParamDefaulter.
func (i *Increment) DefaultParams(base *datatree.Tree) {
	base.Ensure(ByKey).SetValue(1)
}

// TransformData implements node.DataTransformer.
func (i *Increment) TransformData(n *node.Node, tree *datatree.Tree) (*datatree.Tree, error) {
	by, err := n.Param(ByKey)
	if err != nil {
		return nil, err
	}
	cur, _ := tree.Get(ValueKey)
	if cur == nil {
		cur = 0
	}
	sum, err := add(cur, by)
	if err != nil {
		return nil, fmt.Errorf("incrementing %s: %w", n, err)
	}
	out := tree.Copy()
	out.Ensure(ValueKey).SetValue(sum)
	return out, nil
}

// add sums two numbers, keeping integers integral.
func add(a, b any) (any, error) {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		return ai + bi, nil
	}
	af, ok := asFloat(a)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a number: %v", ValueKey, a)
	}
	bf, ok := asFloat(b)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a number: %v", ByKey, b)
	}
	return af + bf, nil
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
