// Package snapshot implements the transfer object that carries node data
// between nodes: a list of data trees plus the uid edge pairs describing the
// topology among them.
//
// A Snapshot is the only shape in which data crosses a node boundary. Treat it
// as immutable once built; Combine and Merge always copy the trees they
// receive, so a combined snapshot never shares mutable storage with its
// sources.
package snapshot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vk/nodeweave/internal/datatree"
)

// ErrUnsupportedPart is returned by Combine for inputs it cannot flatten.
var ErrUnsupportedPart = errors.New("unsupported snapshot part")

// EdgePair is a directed (from uid, to uid) pair among the contained trees.
type EdgePair struct {
	From string
	To   string
}

// Owner is anything identified by a uid, such as a node record or a tree.
type Owner interface {
	UID() string
}

// Snapshot bundles data trees with the edges among them.
type Snapshot struct {
	trees []*datatree.Tree
	edges map[EdgePair]struct{}
	index map[string]*datatree.Tree
}

// New builds a snapshot that takes ownership of trees without copying them.
func New(trees []*datatree.Tree, edges ...EdgePair) *Snapshot {
	s := &Snapshot{
		trees: make([]*datatree.Tree, 0, len(trees)),
		edges: make(map[EdgePair]struct{}, len(edges)),
		index: make(map[string]*datatree.Tree, len(trees)),
	}
	for _, t := range trees {
		if t == nil {
			continue
		}
		s.trees = append(s.trees, t)
		s.index[t.UID()] = t
	}
	for _, e := range edges {
		s.edges[e] = struct{}{}
	}
	return s
}

// Empty returns a snapshot with no trees and no edges.
func Empty() *Snapshot { return New(nil) }

// Of copies the given trees into a new snapshot with no edges.
func Of(trees ...*datatree.Tree) *Snapshot {
	return Merge(New(trees))
}

// Merge combines snapshots, copying every tree and unioning edge sets. Nil
// snapshots are skipped.
func Merge(snaps ...*Snapshot) *Snapshot {
	b := &builder{edges: make(map[EdgePair]struct{})}
	for _, s := range snaps {
		b.addSnapshot(s)
	}
	return b.build()
}

// Combine flattens arbitrarily nested inputs into one snapshot. Accepted parts
// are *Snapshot, *datatree.Tree, []*Snapshot, []*datatree.Tree and []any
// holding any of these. Nil parts are skipped. Every tree is copied.
func Combine(parts ...any) (*Snapshot, error) {
	b := &builder{edges: make(map[EdgePair]struct{})}
	if err := b.add(parts); err != nil {
		return nil, err
	}
	return b.build(), nil
}

type builder struct {
	trees []*datatree.Tree
	edges map[EdgePair]struct{}
}

func (b *builder) add(part any) error {
	switch p := part.(type) {
	case nil:
		return nil
	case *Snapshot:
		b.addSnapshot(p)
	case *datatree.Tree:
		if p != nil {
			b.trees = append(b.trees, p.Copy())
		}
	case []*Snapshot:
		for _, s := range p {
			b.addSnapshot(s)
		}
	case []*datatree.Tree:
		for _, t := range p {
			if t != nil {
				b.trees = append(b.trees, t.Copy())
			}
		}
	case []any:
		for _, inner := range p {
			if err := b.add(inner); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedPart, part)
	}
	return nil
}

func (b *builder) addSnapshot(s *Snapshot) {
	if s == nil {
		return
	}
	for _, t := range s.trees {
		b.trees = append(b.trees, t.Copy())
	}
	for e := range s.edges {
		b.edges[e] = struct{}{}
	}
}

func (b *builder) build() *Snapshot {
	s := New(b.trees)
	s.edges = b.edges
	return s
}

// Trees returns the contained trees in insertion order. The trees themselves
// are not copied.
func (s *Snapshot) Trees() []*datatree.Tree {
	out := make([]*datatree.Tree, len(s.trees))
	copy(out, s.trees)
	return out
}

// Len returns the number of contained trees.
func (s *Snapshot) Len() int { return len(s.trees) }

// IsEmpty reports whether the snapshot holds no trees.
func (s *Snapshot) IsEmpty() bool { return len(s.trees) == 0 }

// First returns the first tree, or nil when empty.
func (s *Snapshot) First() *datatree.Tree {
	if len(s.trees) == 0 {
		return nil
	}
	return s.trees[0]
}

// Edges returns the edge pairs sorted by (From, To).
func (s *Snapshot) Edges() []EdgePair {
	out := make([]EdgePair, 0, len(s.edges))
	for e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// HasEdge reports whether the pair is present.
func (s *Snapshot) HasEdge(e EdgePair) bool {
	_, ok := s.edges[e]
	return ok
}

// WithEdges returns a snapshot over the same trees with the given edges.
func (s *Snapshot) WithEdges(edges []EdgePair) *Snapshot {
	return New(s.trees, edges...)
}

// UIDs returns the sorted uids of the contained trees.
func (s *Snapshot) UIDs() []string {
	out := make([]string, 0, len(s.index))
	for uid := range s.index {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

// Get returns the tree with the given uid.
func (s *Snapshot) Get(uid string) (*datatree.Tree, bool) {
	t, ok := s.index[uid]
	return t, ok
}

// GetFor returns the tree owned by o, resolving o to its uid.
func (s *Snapshot) GetFor(o Owner) (*datatree.Tree, bool) {
	if o == nil {
		return nil, false
	}
	return s.Get(o.UID())
}

// GetOr returns the tree with the given uid, or def when missing.
func (s *Snapshot) GetOr(uid string, def *datatree.Tree) *datatree.Tree {
	if t, ok := s.index[uid]; ok {
		return t
	}
	return def
}

// Copy returns a deep copy.
func (s *Snapshot) Copy() *Snapshot { return Merge(s) }

// Serialise returns a plain representation suitable for JSON encoding.
func (s *Snapshot) Serialise() map[string]any {
	trees := make([]map[string]any, 0, len(s.trees))
	for _, t := range s.trees {
		trees = append(trees, map[string]any{
			"uid":  t.UID(),
			"data": t.Flatten(),
		})
	}
	edges := make([][2]string, 0, len(s.edges))
	for _, e := range s.Edges() {
		edges = append(edges, [2]string{e.From, e.To})
	}
	return map[string]any{"trees": trees, "edges": edges}
}
