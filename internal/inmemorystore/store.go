// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Unlike inmemorytopology which uses RWMutex, this store uses sync.Map:
// each node's outputs are independent, the key space is stable while values
// are rewritten on every evaluation, and observers may serialise while the
// scheduler writes.
package inmemorystore

import (
	"sort"
	"sync"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/nodestore"
	"github.com/vk/nodeweave/internal/snapshot"
)

type outputKey struct {
	uid string
	ch  channel.Channel
}

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	outputs sync.Map // Key: outputKey, Value: *snapshot.Snapshot
	errors  sync.Map // Key: node uid, Value: error
}

// New creates a new, empty in-memory output store.
func New() nodestore.Store {
	return &Store{}
}

// SetOutput records the latest output of a node on one channel.
func (s *Store) SetOutput(uid string, ch channel.Channel, out *snapshot.Snapshot) {
	s.outputs.Store(outputKey{uid: uid, ch: ch}, out)
}

// Output returns the cached output of a node on one channel.
func (s *Store) Output(uid string, ch channel.Channel) (*snapshot.Snapshot, bool) {
	v, ok := s.outputs.Load(outputKey{uid: uid, ch: ch})
	if !ok {
		return nil, false
	}
	return v.(*snapshot.Snapshot), true
}

// SetError records the last failure of a node.
func (s *Store) SetError(uid string, err error) {
	if err == nil {
		s.errors.Delete(uid)
		return
	}
	s.errors.Store(uid, err)
}

// Error retrieves the last recorded failure of a node.
func (s *Store) Error(uid string) error {
	v, ok := s.errors.Load(uid)
	if !ok {
		return nil // If not found, there is no error.
	}
	return v.(error)
}

// Drop removes every output and error held for uid.
func (s *Store) Drop(uid string) {
	s.outputs.Range(func(k, _ any) bool {
		if k.(outputKey).uid == uid {
			s.outputs.Delete(k)
		}
		return true
	})
	s.errors.Delete(uid)
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.outputs.Clear()
	s.errors.Clear()
}

// UIDs returns the uids with cached outputs, sorted.
func (s *Store) UIDs() []string {
	seen := make(map[string]struct{})
	s.outputs.Range(func(k, _ any) bool {
		seen[k.(outputKey).uid] = struct{}{}
		return true
	})
	uids := make([]string, 0, len(seen))
	for uid := range seen {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// Serialise returns every cached output as nested maps.
func (s *Store) Serialise() map[string]map[string]any {
	out := make(map[string]map[string]any)
	s.outputs.Range(func(k, v any) bool {
		key := k.(outputKey)
		if out[key.uid] == nil {
			out[key.uid] = make(map[string]any)
		}
		out[key.uid][key.ch.String()] = v.(*snapshot.Snapshot).Serialise()
		return true
	})
	return out
}
