package node

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrDuplicateUID is returned when a uid is already held by a live record.
var ErrDuplicateUID = errors.New("duplicate node uid")

// uids holds every uid claimed by a live record in this process.
var uids sync.Map

func claim(uid string) (string, error) {
	if uid == "" {
		uid = uuid.NewString()
	}
	if _, loaded := uids.LoadOrStore(uid, struct{}{}); loaded {
		return "", fmt.Errorf("%w: %q", ErrDuplicateUID, uid)
	}
	return uid, nil
}

func release(uid string) {
	uids.Delete(uid)
}

// UIDInUse reports whether a live record holds uid.
func UIDInUse(uid string) bool {
	_, ok := uids.Load(uid)
	return ok
}

// Reclaim claims the record's uid again after Release, for example when a
// removed record is restored. It fails if another record took the uid.
func (n *Node) Reclaim() error {
	_, err := claim(n.uid)
	return err
}
