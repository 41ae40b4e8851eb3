package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/vk/nodeweave/internal/node"
)

var (
	// ErrUnknownNodeType is returned when a type name has no registration.
	ErrUnknownNodeType = errors.New("unknown node type")
	// ErrInvalidNodeType is returned when a registration is malformed.
	ErrInvalidNodeType = errors.New("invalid node type")
)

// NodeType describes one constructible node type.
type NodeType struct {
	Name        string
	Description string
	// New returns a fresh behaviour for one node record.
	New func() node.Behaviour
}

// Catalogue resolves node type names for the graph.
type Catalogue interface {
	Resolve(name string) (*NodeType, error)
	Names() []string
}

// Module is the interface that node type packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the node types known to a single application instance.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*NodeType
}

var _ Catalogue = (*Registry)(nil)

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{types: make(map[string]*NodeType)}
}

// Register adds a node type. Names must be unique and non-empty.
func (r *Registry) Register(t *NodeType) error {
	if t == nil || t.Name == "" || t.New == nil {
		return fmt.Errorf("%w: registration needs a name and a factory", ErrInvalidNodeType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("%w: node type '%s' already registered", ErrInvalidNodeType, t.Name)
	}
	slog.Debug("Registering node type.", "name", t.Name)
	r.types[t.Name] = t
	return nil
}

// MustRegister is Register for static registrations; it panics on error.
func (r *Registry) MustRegister(t *NodeType) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Use registers every module in order.
func (r *Registry) Use(modules ...Module) *Registry {
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Resolve returns the registration for name.
func (r *Registry) Resolve(name string) (*NodeType, error) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w '%s', valid types are: %s", ErrUnknownNodeType, name, strings.Join(r.Names(), ", "))
	}
	return t, nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
