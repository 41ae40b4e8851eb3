package node

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/event"
	"github.com/vk/nodeweave/internal/snapshot"
)

// NameKey is the base-tree key holding the human-readable node name.
const NameKey = "name"

var (
	// ErrMissingParam is returned by Param when the key does not resolve.
	ErrMissingParam = errors.New("missing param")
	// ErrEmptyComposite is returned when compositing an empty tree list.
	ErrEmptyComposite = errors.New("no trees to composite")
)

// Node is a single record in the graph: identity, base data and overrides.
type Node struct {
	// uid is immutable once assigned and is the only stable handle across
	// structural changes.
	uid       string
	behaviour Behaviour
	// base holds the node's own authored data.
	base *datatree.Tree
	// override holds keys pinned on this node that win over resolved inputs.
	override *datatree.Tree
	resolver Resolver

	paramsChanged event.Signal[*Node]
}

// New creates a record. An empty uid is replaced with a fresh UUID. The uid is
// claimed process-wide until Release is called.
func New(b Behaviour, name, uid string) (*Node, error) {
	if b == nil {
		return nil, errors.New("node behaviour is nil")
	}
	uid, err := claim(uid)
	if err != nil {
		return nil, err
	}

	base := datatree.NewRoot("root", uid)
	if d, ok := b.(ParamDefaulter); ok {
		d.DefaultParams(base)
	}
	base.Ensure(NameKey).SetValue(name)

	return &Node{
		uid:       uid,
		behaviour: b,
		base:      base,
		override:  datatree.NewRoot("override", uid),
	}, nil
}

// Release frees the record's uid so a regenerated record may reuse it.
func (n *Node) Release() { release(n.uid) }

// UID returns the record's uid.
func (n *Node) UID() string { return n.uid }

// TypeName returns the node type name.
func (n *Node) TypeName() string { return n.behaviour.TypeName() }

// Behaviour returns the node type implementation.
func (n *Node) Behaviour() Behaviour { return n.behaviour }

// Name returns the name stored in the base tree. It is never inherited.
func (n *Node) Name() string {
	v, _ := n.base.Get(NameKey)
	s, _ := v.(string)
	return s
}

// SetName writes the name into the base tree.
func (n *Node) SetName(name string) {
	n.base.Ensure(NameKey).SetValue(name)
	n.paramsChanged.Emit(n)
}

// OnParamsChanged subscribes h to writes made through SetParam, ClearOverride
// and SetName. Direct edits of BaseParams or OverrideParams are not reported.
func (n *Node) OnParamsChanged(h func(*Node)) string {
	return n.paramsChanged.Subscribe(h)
}

// UnsubscribeParams removes a subscription made with OnParamsChanged.
func (n *Node) UnsubscribeParams(id string) bool {
	return n.paramsChanged.Unsubscribe(id)
}

// BaseParams returns the base tree before any resolution.
func (n *Node) BaseParams() *datatree.Tree { return n.base }

// OverrideParams returns the sparse override tree.
func (n *Node) OverrideParams() *datatree.Tree { return n.override }

// Bind attaches the resolver used to reach live inputs. Passing nil detaches.
func (n *Node) Bind(r Resolver) { n.resolver = r }

// Resolver returns the bound resolver, or nil.
func (n *Node) Resolver() Resolver { return n.resolver }

// HasInputs reports whether the record has a live input on ch.
func (n *Node) HasInputs(ch channel.Channel) bool {
	return n.resolver != nil && n.resolver.HasInputs(n, ch)
}

// IsReference reports whether the record has a live Params input.
func (n *Node) IsReference() bool { return n.HasInputs(channel.Params) }

// Params returns the resolved parameter tree.
func (n *Node) Params() (*datatree.Tree, error) {
	return n.params(NewScope())
}

func (n *Node) params(s *Scope) (*datatree.Tree, error) {
	if !n.IsReference() {
		return n.base, nil
	}

	in, err := n.resolver.IncomingSnapshot(s, n, channel.Params)
	if err != nil {
		return nil, fmt.Errorf("resolving params of %s: %w", n, err)
	}

	var resolved *datatree.Tree
	trees := in.Trees()
	switch len(trees) {
	case 0:
		// Inputs produced nothing; answer from the record's own data.
		resolved = n.base.Copy()
	case 1:
		resolved = trees[0]
	default:
		resolved, err = n.Composite(trees)
		if err != nil {
			return nil, fmt.Errorf("compositing params of %s: %w", n, err)
		}
	}
	return n.applyOverride(resolved), nil
}

// applyOverride overlays the override tree on a copy of resolved.
func (n *Node) applyOverride(resolved *datatree.Tree) *datatree.Tree {
	if n.override.Len() == 0 {
		return resolved
	}
	out := resolved.Copy()
	out.Overlay(n.override)
	return out
}

// Composite resolves several incoming trees into one. The default keeps the
// first tree.
func (n *Node) Composite(trees []*datatree.Tree) (*datatree.Tree, error) {
	if c, ok := n.behaviour.(Compositor); ok {
		return c.Composite(n, trees)
	}
	if len(trees) == 0 {
		return nil, ErrEmptyComposite
	}
	return trees[0], nil
}

// Param returns the resolved value at key.
func (n *Node) Param(key string) (any, error) {
	p, err := n.Params()
	if err != nil {
		return nil, err
	}
	v, ok := p.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s", ErrMissingParam, key, n)
	}
	return v, nil
}

// ParamOr returns the resolved value at key, or def if it cannot be resolved.
func (n *Node) ParamOr(key string, def any) any {
	v, err := n.Param(key)
	if err != nil {
		return def
	}
	return v
}

// SetParam writes a value. Non-references write their base tree. References
// write their override tree, and only when the value differs from the live
// inherited one.
func (n *Node) SetParam(key string, value any) error {
	target := n.base
	if n.IsReference() {
		live, err := n.Params()
		if err != nil {
			return err
		}
		if current, ok := live.Get(key); ok && reflect.DeepEqual(current, value) {
			return nil
		}
		target = n.override
	}
	if err := target.Set(key, value); err != nil {
		return err
	}
	n.paramsChanged.Emit(n)
	return nil
}

// ClearOverride removes an override, reporting whether one existed.
func (n *Node) ClearOverride(key string) bool {
	if !n.override.Delete(key) {
		return false
	}
	n.paramsChanged.Emit(n)
	return true
}

// OutputForChannel returns what this record emits on ch.
func (n *Node) OutputForChannel(ch channel.Channel) (*snapshot.Snapshot, error) {
	return n.ResolveOutput(NewScope(), ch)
}

// ResolveOutput is OutputForChannel within the resolution chain s. Resolvers
// call it so that a cycle through several records is detected.
func (n *Node) ResolveOutput(s *Scope, ch channel.Channel) (*snapshot.Snapshot, error) {
	if o, ok := n.behaviour.(ChannelOutputter); ok {
		out, handled, err := o.OutputForChannel(n, ch)
		if err != nil {
			return nil, err
		}
		if handled {
			return out, nil
		}
	}
	return n.defaultOutput(s, ch)
}

// DefaultOutputForChannel is the dispatch used when a node type does not
// handle a channel itself.
func (n *Node) DefaultOutputForChannel(ch channel.Channel) (*snapshot.Snapshot, error) {
	return n.defaultOutput(NewScope(), ch)
}

func (n *Node) defaultOutput(s *Scope, ch channel.Channel) (*snapshot.Snapshot, error) {
	switch ch {
	case channel.Params:
		p, err := n.params(s)
		if err != nil {
			return nil, err
		}
		return snapshot.New([]*datatree.Tree{p}), nil
	case channel.Flow:
		return n.outputFlowData(s)
	default:
		return snapshot.Empty(), nil
	}
}

// OutputFlowData transforms the combined Flow inputs, or the record's own
// resolved params when it has no Flow input.
func (n *Node) OutputFlowData() (*snapshot.Snapshot, error) {
	return n.outputFlowData(NewScope())
}

func (n *Node) outputFlowData(s *Scope) (*snapshot.Snapshot, error) {
	in, err := n.flowInput(s)
	if err != nil {
		return nil, err
	}
	return n.Transform(in)
}

func (n *Node) flowInput(s *Scope) (*snapshot.Snapshot, error) {
	if n.HasInputs(channel.Flow) {
		return n.resolver.IncomingSnapshot(s, n, channel.Flow)
	}
	p, err := n.params(s)
	if err != nil {
		return nil, err
	}
	return snapshot.Of(p), nil
}

// Transform processes a snapshot. The default applies TransformData to every
// tree independently and keeps the input edges.
func (n *Node) Transform(in *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if t, ok := n.behaviour.(Transformer); ok {
		return t.Transform(n, in)
	}
	trees := in.Trees()
	out := make([]*datatree.Tree, 0, len(trees))
	for _, tree := range trees {
		res, err := n.TransformData(tree)
		if err != nil {
			return nil, fmt.Errorf("%s transforming tree %s: %w", n, tree.UID(), err)
		}
		out = append(out, res)
	}
	return snapshot.New(out, in.Edges()...), nil
}

// TransformData processes one tree. The default returns a copy.
func (n *Node) TransformData(tree *datatree.Tree) (*datatree.Tree, error) {
	if t, ok := n.behaviour.(DataTransformer); ok {
		return t.TransformData(n, tree)
	}
	return tree.Copy(), nil
}

// Execute computes the Flow output for the scheduler from the combined Flow
// inputs. A record with no Flow input executes on its own resolved params.
func (n *Node) Execute(in *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if e, ok := n.behaviour.(Executor); ok {
		return e.Execute(n, in)
	}
	if !n.HasInputs(channel.Flow) {
		p, err := n.Params()
		if err != nil {
			return nil, err
		}
		in = snapshot.Of(p)
	}
	return n.Transform(in)
}

// String renders the record for logs and errors.
func (n *Node) String() string {
	return fmt.Sprintf("<%s %s (%s)>", n.TypeName(), n.Name(), n.uid)
}
