package channel

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownChannel is returned when a channel name is not in the registry.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel is a registered data-use tag.
type Channel string

// Builtin channels.
const (
	Params    Channel = "Params"
	Flow      Channel = "Flow"
	Structure Channel = "Structure"
	Creator   Channel = "Creator"
	Tree      Channel = "Tree"
	Anchor    Channel = "Anchor"
)

// String returns the channel name.
func (c Channel) String() string { return string(c) }

var (
	mu    sync.RWMutex
	known = map[Channel]int{}
	order []Channel
)

func init() {
	for _, c := range []Channel{Params, Flow, Structure, Creator, Tree, Anchor} {
		Register(string(c))
	}
}

// Register adds a channel to the registry and returns it. Registering an
// existing name is a no-op.
func Register(name string) Channel {
	mu.Lock()
	defer mu.Unlock()

	c := Channel(name)
	if _, ok := known[c]; ok {
		return c
	}
	known[c] = len(order)
	order = append(order, c)
	return c
}

// Lookup resolves a channel by name.
func Lookup(name string) (Channel, error) {
	mu.RLock()
	defer mu.RUnlock()

	c := Channel(name)
	if _, ok := known[c]; !ok {
		return "", fmt.Errorf("%w: %q; valid channels are %v", ErrUnknownChannel, name, namesLocked())
	}
	return c, nil
}

// Validate reports ErrUnknownChannel if c was never registered.
func Validate(c Channel) error {
	_, err := Lookup(string(c))
	return err
}

// IsKnown reports whether c is registered.
func IsKnown(c Channel) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := known[c]
	return ok
}

// All returns every registered channel in registration order.
func All() []Channel {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]Channel, len(order))
	copy(out, order)
	return out
}

// Names returns the sorted names of all registered channels.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(order))
	for _, c := range order {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}
