package node

import (
	"errors"
	"fmt"

	"github.com/vk/nodeweave/internal/channel"
)

// ErrCyclicResolution is returned when resolving a channel of a record leads
// back to the same channel of the same record.
var ErrCyclicResolution = errors.New("cyclic resolution")

type scopeKey struct {
	uid string
	ch  channel.Channel
}

// Scope holds the (record, channel) pairs being resolved along one call
// chain. A Scope belongs to a single chain and is not shared between
// goroutines; every public entry point starts a fresh one.
type Scope struct {
	active map[scopeKey]struct{}
}

// NewScope starts an empty resolution chain.
func NewScope() *Scope {
	return &Scope{active: make(map[scopeKey]struct{})}
}

// Enter marks ch of n as being resolved. It fails when the pair is already
// being resolved further up the chain.
func (s *Scope) Enter(n *Node, ch channel.Channel) error {
	key := scopeKey{uid: n.UID(), ch: ch}
	if _, busy := s.active[key]; busy {
		return fmt.Errorf("%w: %s of %s depends on itself", ErrCyclicResolution, ch, n)
	}
	s.active[key] = struct{}{}
	return nil
}

// Leave ends the resolution of ch of n.
func (s *Scope) Leave(n *Node, ch channel.Channel) {
	delete(s.active, scopeKey{uid: n.UID(), ch: ch})
}
