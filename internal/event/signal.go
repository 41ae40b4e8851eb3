// Package event provides synchronous, ordered publish/subscribe signals.
package event

import (
	"sync"

	"github.com/google/uuid"
)

// Handler receives one emitted value.
type Handler[T any] func(T)

type subscription[T any] struct {
	id      string
	handler Handler[T]
}

// Signal delivers values to its subscribers in subscription order, on the
// emitting goroutine. It is safe for concurrent use.
type Signal[T any] struct {
	mu   sync.RWMutex
	subs []subscription[T]
}

// Subscribe registers handler and returns an id for Unsubscribe.
func (s *Signal[T]) Subscribe(handler Handler[T]) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.subs = append(s.subs, subscription[T]{id: id, handler: handler})
	return id
}

// Unsubscribe removes a subscription, reporting whether it existed.
func (s *Signal[T]) Unsubscribe(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every handler with v. Handlers may subscribe or unsubscribe
// while being called; changes apply from the next Emit.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	subs := make([]subscription[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(v)
	}
}

// Len returns the number of subscribers.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
