package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/node"
)

// Validate checks that every registered factory builds a behaviour whose
// TypeName matches its registration. All problems are reported together.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		t, err := r.Resolve(name)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		b, err := build(t)
		if err != nil {
			errs = append(errs, fmt.Sprintf("node type '%s': %v", name, err))
			continue
		}
		if b == nil {
			errs = append(errs, fmt.Sprintf("node type '%s': factory returned nil", name))
			continue
		}
		if got := b.TypeName(); got != name {
			errs = append(errs, fmt.Sprintf("node type '%s': factory builds type '%s'", name, got))
			continue
		}
		logger.Debug("Node type validated.", "name", name)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: registry validation failed:\n- %s", ErrInvalidNodeType, strings.Join(errs, "\n- "))
	}
	return nil
}

// build calls the factory, turning a panic into an error.
func build(t *NodeType) (b node.Behaviour, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory panicked: %v", rec)
		}
	}()
	return t.New(), nil
}
