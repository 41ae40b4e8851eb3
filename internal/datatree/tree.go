package datatree

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"
	"github.com/vk/nodeweave/internal/keypath"
)

// Tree is a single branch of a data tree. The root branch owns the uid.
type Tree struct {
	name     string
	uid      string
	value    any
	hasValue bool
	parent   *Tree
	branches []*Tree
	index    map[string]*Tree
}

// New creates a detached branch with no uid.
func New(name string) *Tree {
	return &Tree{name: name, index: make(map[string]*Tree)}
}

// NewRoot creates a root tree. An empty uid is replaced with a fresh UUID.
func NewRoot(name, uid string) *Tree {
	if uid == "" {
		uid = uuid.NewString()
	}
	t := New(name)
	t.uid = uid
	return t
}

// FromMap builds a root tree from nested maps. Nested map[string]any values
// become branches; everything else becomes a branch value.
func FromMap(name, uid string, values map[string]any) *Tree {
	t := NewRoot(name, uid)
	t.fill(values)
	return t
}

func (t *Tree) fill(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b := t.Ensure(k)
		if nested, ok := values[k].(map[string]any); ok {
			b.fill(nested)
			continue
		}
		b.SetValue(values[k])
	}
}

// Name returns the branch name.
func (t *Tree) Name() string { return t.name }

// UID returns the uid of the root this branch belongs to.
func (t *Tree) UID() string { return t.Root().uid }

// SetUID replaces the root uid.
func (t *Tree) SetUID(uid string) { t.Root().uid = uid }

// Value returns the branch value, or nil if none is set.
func (t *Tree) Value() any { return t.value }

// HasValue reports whether a value was set on this branch.
func (t *Tree) HasValue() bool { return t.hasValue }

// SetValue sets the branch value.
func (t *Tree) SetValue(v any) {
	t.value = v
	t.hasValue = true
}

// ClearValue removes the branch value, keeping child branches.
func (t *Tree) ClearValue() {
	t.value = nil
	t.hasValue = false
}

// Parent returns the parent branch, or nil for a root.
func (t *Tree) Parent() *Tree { return t.parent }

// Root walks up to the root branch.
func (t *Tree) Root() *Tree {
	r := t
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Branch returns the direct child with the given name, or nil.
func (t *Tree) Branch(name string) *Tree { return t.index[name] }

// Ensure returns the direct child with the given name, creating it if needed.
func (t *Tree) Ensure(name string) *Tree {
	if b, ok := t.index[name]; ok {
		return b
	}
	b := New(name)
	b.parent = t
	t.branches = append(t.branches, b)
	t.index[name] = b
	return b
}

// Branches returns the direct children in insertion order.
func (t *Tree) Branches() []*Tree {
	out := make([]*Tree, len(t.branches))
	copy(out, t.branches)
	return out
}

// Keys returns the names of the direct children in insertion order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.branches))
	for _, b := range t.branches {
		keys = append(keys, b.name)
	}
	return keys
}

// Len returns the number of direct children.
func (t *Tree) Len() int { return len(t.branches) }

// Lookup follows p from this branch and returns the branch found, or nil.
func (t *Tree) Lookup(p keypath.Path) *Tree {
	cur := t
	for _, seg := range p {
		cur = cur.index[seg]
		if cur == nil {
			return nil
		}
	}
	return cur
}

// GetBranch parses key and returns the addressed branch, or nil if it does
// not exist or the key is malformed.
func (t *Tree) GetBranch(key string) *Tree {
	p, err := keypath.Parse(key)
	if err != nil {
		return nil
	}
	return t.Lookup(p)
}

// Get returns the value stored at key. The second result is false when the
// branch is missing or holds no value.
func (t *Tree) Get(key string) (any, bool) {
	b := t.GetBranch(key)
	if b == nil || !b.hasValue {
		return nil, false
	}
	return b.value, true
}

// Set stores v at key, creating intermediate branches.
func (t *Tree) Set(key string, v any) error {
	p, err := keypath.Parse(key)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	t.SetPath(p, v)
	return nil
}

// SetPath stores v at p, creating intermediate branches.
func (t *Tree) SetPath(p keypath.Path, v any) {
	cur := t
	for _, seg := range p {
		cur = cur.Ensure(seg)
	}
	cur.SetValue(v)
}

// Delete removes the branch at key and everything below it.
func (t *Tree) Delete(key string) bool {
	b := t.GetBranch(key)
	if b == nil || b.parent == nil {
		return false
	}
	b.parent.remove(b.name)
	return true
}

func (t *Tree) remove(name string) {
	b, ok := t.index[name]
	if !ok {
		return
	}
	delete(t.index, name)
	for i, c := range t.branches {
		if c == b {
			t.branches = append(t.branches[:i], t.branches[i+1:]...)
			break
		}
	}
	b.parent = nil
}

// Copy returns a deep copy of this branch and everything below it. The copy
// is a detached root that keeps the uid of the source root.
func (t *Tree) Copy() *Tree {
	c := t.copyBranch()
	c.uid = t.UID()
	return c
}

func (t *Tree) copyBranch() *Tree {
	c := New(t.name)
	c.value = copyValue(t.value)
	c.hasValue = t.hasValue
	for _, b := range t.branches {
		bc := b.copyBranch()
		bc.parent = c
		c.branches = append(c.branches, bc)
		c.index[bc.name] = bc
	}
	return c
}

// copyValue deep-copies slices, arrays and maps of any element type so a
// copied tree never aliases a container of its source. Pointers, structs and
// channels are shared.
func copyValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = copyValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = copyValue(inner)
		}
		return out
	}
	return copyReflect(reflect.ValueOf(v)).Interface()
}

func copyReflect(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(copyReflect(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := range v.Len() {
			out.Index(i).Set(copyReflect(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyReflect(iter.Value()))
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(copyReflect(v.Elem()))
		return out
	default:
		return v
	}
}

// Equal compares names, values and branch structure. Uids are not compared.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.name != other.name || t.hasValue != other.hasValue || !reflect.DeepEqual(t.value, other.value) {
		return false
	}
	if len(t.branches) != len(other.branches) {
		return false
	}
	for i, b := range t.branches {
		if !b.Equal(other.branches[i]) {
			return false
		}
	}
	return true
}

// Overlay writes every valued branch of src into t at the same relative path.
// Branches of t that src does not mention are left untouched.
func (t *Tree) Overlay(src *Tree) {
	if src == nil {
		return
	}
	for _, b := range src.branches {
		dst := t.Ensure(b.name)
		if b.hasValue {
			dst.SetValue(copyValue(b.value))
		}
		dst.Overlay(b)
	}
}

// Walk visits every branch below t depth-first, in insertion order, passing
// the path relative to t.
func (t *Tree) Walk(fn func(p keypath.Path, b *Tree) error) error {
	return t.walk(nil, fn)
}

func (t *Tree) walk(prefix keypath.Path, fn func(p keypath.Path, b *Tree) error) error {
	for _, b := range t.branches {
		p := prefix.Child(b.name)
		if err := fn(p, b); err != nil {
			return err
		}
		if err := b.walk(p, fn); err != nil {
			return err
		}
	}
	return nil
}

// Flatten returns every valued branch keyed by its dotted path.
func (t *Tree) Flatten() map[string]any {
	out := make(map[string]any)
	_ = t.Walk(func(p keypath.Path, b *Tree) error {
		if b.hasValue {
			out[p.String()] = copyValue(b.value)
		}
		return nil
	})
	return out
}

// String renders a short description for logs.
func (t *Tree) String() string {
	return fmt.Sprintf("<tree %s uid=%s branches=%d>", t.name, t.UID(), len(t.branches))
}
