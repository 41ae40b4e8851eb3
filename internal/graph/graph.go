package graph

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/datatree"
	"github.com/vk/nodeweave/internal/delta"
	"github.com/vk/nodeweave/internal/event"
	"github.com/vk/nodeweave/internal/inmemorystore"
	"github.com/vk/nodeweave/internal/inmemorytopology"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/nodestore"
	"github.com/vk/nodeweave/internal/query"
	"github.com/vk/nodeweave/internal/registry"
	"github.com/vk/nodeweave/internal/topologystore"
)

// Graph is a multi-edge directed graph of node records.
type Graph struct {
	name      string
	logger    *slog.Logger
	catalogue registry.Catalogue
	tracker   *delta.Tracker[*node.Node]
	topology  topologystore.Reader[*node.Node]
	outputs   nodestore.Store

	paramsChanged event.Signal[*node.Node]
	watchMu       sync.Mutex
	watches       map[string]string
}

// Option configures a Graph.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	topology topologystore.Store[*node.Node]
	outputs  nodestore.Store
}

// WithLogger sets the logger used for structural events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTopology replaces the default in-memory topology store. The graph
// takes ownership of the store.
func WithTopology(s topologystore.Store[*node.Node]) Option {
	return func(o *options) { o.topology = s }
}

// WithOutputStore replaces the default in-memory output cache.
func WithOutputStore(s nodestore.Store) Option {
	return func(o *options) { o.outputs = s }
}

// New creates an empty graph resolving node types through cat.
func New(name string, cat registry.Catalogue, opts ...Option) *Graph {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.topology == nil {
		o.topology = inmemorytopology.New[*node.Node]()
	}
	if o.outputs == nil {
		o.outputs = inmemorystore.New()
	}

	tracker := delta.NewTracker(o.topology)
	return &Graph{
		name:      name,
		logger:    ctxlog.OrDefault(o.logger).With("graph", name),
		catalogue: cat,
		tracker:   tracker,
		topology:  tracker.View(),
		outputs:   o.outputs,
		watches:   make(map[string]string),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Catalogue returns the node type catalogue.
func (g *Graph) Catalogue() registry.Catalogue { return g.catalogue }

// CreateNode builds a node of the named type and adds it. Change signals are
// held back until the type's own setup has finished, then emitted as one
// delta. If setup fails every node it added is removed and nothing is emitted.
func (g *Graph) CreateNode(typeName, name, uid string) (*node.Node, error) {
	return g.CreateNodeWithParams(typeName, name, uid, nil)
}

// CreateNodeWithParams is CreateNode with params overlaid on the type's
// defaults before setup runs.
func (g *Graph) CreateNodeWithParams(typeName, name, uid string, params *datatree.Tree) (*node.Node, error) {
	t, err := g.catalogue.Resolve(typeName)
	if err != nil {
		return nil, fmt.Errorf("creating node '%s': %w", name, err)
	}
	b := t.New()
	if b == nil {
		return nil, fmt.Errorf("creating node '%s': %w: type '%s' built no behaviour", name, registry.ErrInvalidNodeType, typeName)
	}
	n, err := node.New(b, name, uid)
	if err != nil {
		return nil, fmt.Errorf("creating node '%s': %w", name, err)
	}
	if params != nil {
		n.BaseParams().Overlay(params)
		n.SetName(name)
	}

	var added []string
	subID := g.tracker.Raw.Subscribe(func(d Delta) {
		added = append(added, d.Nodes.AddedUIDs()...)
	})

	g.tracker.Pause()
	emit := false
	defer func() { g.tracker.Resume(emit) }()
	mark := g.tracker.Mark()

	err = g.AddNode(n)
	if err == nil {
		if s, ok := b.(Setupper); ok {
			err = s.Setup(g, n)
		}
	}
	g.tracker.Raw.Unsubscribe(subID)

	if err != nil {
		g.rollback(added)
		// An enclosing region must not see the rolled back nodes at all.
		g.tracker.Collapse(mark)
		n.Release()
		return nil, fmt.Errorf("creating node '%s' of type '%s': %w", name, typeName, err)
	}

	emit = true
	g.logger.Debug("Created node.", "type", typeName, "name", name, "uid", n.UID())
	return n, nil
}

func (g *Graph) rollback(uids []string) {
	for i := len(uids) - 1; i >= 0; i-- {
		if n, ok := g.topology.Node(uids[i]); ok {
			_ = g.RemoveNode(n)
		}
	}
}

// AddNode adds an existing record and binds it to this graph. Re-adding the
// same record is a no-op.
func (g *Graph) AddNode(n *node.Node) error {
	if existing, ok := g.topology.Node(n.UID()); ok {
		if existing == n {
			return nil
		}
		return fmt.Errorf("%w: uid '%s' already held by %s", ErrDuplicateNode, n.UID(), existing)
	}
	g.attach(n)
	g.tracker.AddNode(n)
	return nil
}

// attach binds n to the graph and forwards its param changes.
func (g *Graph) attach(n *node.Node) {
	n.Bind(g)
	g.watchMu.Lock()
	defer g.watchMu.Unlock()
	if _, ok := g.watches[n.UID()]; !ok {
		g.watches[n.UID()] = n.OnParamsChanged(g.paramsChanged.Emit)
	}
}

func (g *Graph) detach(n *node.Node) {
	n.Bind(nil)
	g.watchMu.Lock()
	defer g.watchMu.Unlock()
	if id, ok := g.watches[n.UID()]; ok {
		n.UnsubscribeParams(id)
		delete(g.watches, n.UID())
	}
}

// RemoveNode removes a node with its incident edges and cached outputs, and
// releases its uid.
func (g *Graph) RemoveNode(n *node.Node) error {
	if err := g.tracker.RemoveNode(n.UID()); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingNode, n)
	}
	g.forget(n)
	g.logger.Debug("Removed node.", "name", n.Name(), "uid", n.UID())
	return nil
}

// RemoveNodes removes every listed node present in the graph.
func (g *Graph) RemoveNodes(ns ...*node.Node) {
	uids := make([]string, 0, len(ns))
	present := make([]*node.Node, 0, len(ns))
	for _, n := range ns {
		if g.HasNode(n) {
			uids = append(uids, n.UID())
			present = append(present, n)
		}
	}
	g.tracker.RemoveNodes(uids...)
	for _, n := range present {
		g.forget(n)
	}
}

func (g *Graph) forget(n *node.Node) {
	g.outputs.Drop(n.UID())
	g.detach(n)
	n.Release()
}

// Clear removes every node and cached output.
func (g *Graph) Clear() {
	nodes := g.topology.Nodes()
	g.tracker.Clear()
	for _, n := range nodes {
		g.forget(n)
	}
	g.outputs.Clear()
}

// ConnectNodes adds an unordered edge from one node's fromCh output to
// another node's toCh input.
func (g *Graph) ConnectNodes(from, to *node.Node, fromCh, toCh channel.Channel) error {
	return g.ConnectNodesAt(from, to, fromCh, toCh, topologystore.UnorderedIndex)
}

// ConnectNodesAt adds an edge with an explicit input position. Connecting the
// same pair on the same destination channel again updates the edge.
func (g *Graph) ConnectNodesAt(from, to *node.Node, fromCh, toCh channel.Channel, index int) error {
	if err := channel.Validate(fromCh); err != nil {
		return fmt.Errorf("connecting %s to %s: %w", from, to, err)
	}
	if err := channel.Validate(toCh); err != nil {
		return fmt.Errorf("connecting %s to %s: %w", from, to, err)
	}
	if err := g.require(from, to); err != nil {
		return fmt.Errorf("connecting %s to %s: %w", from, to, err)
	}

	e := topologystore.NewEdge(from.UID(), to.UID(), fromCh, toCh, index)
	if err := g.tracker.AddEdge(e); err != nil {
		return fmt.Errorf("connecting %s to %s: %w", from, to, err)
	}
	g.logger.Debug("Connected nodes.", "from", from.Name(), "to", to.Name(), "from_channel", fromCh, "to_channel", toCh, "index", index)
	return nil
}

// DisconnectNodes removes the edge from one node into another's toCh input.
func (g *Graph) DisconnectNodes(from, to *node.Node, toCh channel.Channel) error {
	if err := channel.Validate(toCh); err != nil {
		return fmt.Errorf("disconnecting %s from %s: %w", from, to, err)
	}
	if err := g.require(from, to); err != nil {
		return fmt.Errorf("disconnecting %s from %s: %w", from, to, err)
	}
	key := topologystore.EdgeKey{From: from.UID(), To: to.UID(), Channel: toCh}
	if err := g.tracker.RemoveEdge(key); err != nil {
		return fmt.Errorf("disconnecting %s from %s: %w", from, to, err)
	}
	return nil
}

func (g *Graph) require(ns ...*node.Node) error {
	for _, n := range ns {
		if n == nil {
			return fmt.Errorf("%w: nil node", ErrMissingNode)
		}
		if existing, ok := g.topology.Node(n.UID()); !ok || existing != n {
			return fmt.Errorf("%w: %s is not in graph '%s'", ErrMissingNode, n, g.name)
		}
	}
	return nil
}

// Node looks a node up by uid, then by name.
func (g *Graph) Node(ref string) (*node.Node, error) {
	if n, ok := g.topology.Node(ref); ok {
		return n, nil
	}
	for _, n := range g.topology.Nodes() {
		if n.Name() == ref {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: no uid or name '%s' in graph '%s'", ErrMissingNode, ref, g.name)
}

// HasNode reports whether this exact record is in the graph.
func (g *Graph) HasNode(n *node.Node) bool {
	existing, ok := g.topology.Node(n.UID())
	return ok && existing == n
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*node.Node { return g.topology.Nodes() }

// NodeNames returns every node name, sorted.
func (g *Graph) NodeNames() []string {
	nodes := g.topology.Nodes()
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name()
	}
	sort.Strings(names)
	return names
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return g.topology.Len() }

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []topologystore.Edge { return g.topology.Edges() }

// Topology returns the read-only structure.
func (g *Graph) Topology() topologystore.Reader[*node.Node] { return g.topology }

// NodeInputMap groups a node's input ties by destination channel. Each tie
// names the source node and the channel it is read from. Ties with an
// explicit index come first, in index order, followed by unordered ties in
// connection order.
func (g *Graph) NodeInputMap(n *node.Node) map[channel.Channel][]Tie {
	out := make(map[channel.Channel][]Tie)
	for _, e := range g.topology.InEdges(n.UID()) {
		src, ok := g.topology.Node(e.Key.From)
		if !ok {
			continue
		}
		out[e.Key.Channel] = append(out[e.Key.Channel], Tie{Node: src, Channel: e.Attrs.FromChannel, Index: e.Attrs.Index})
	}
	for ch := range out {
		sortTies(out[ch])
	}
	return out
}

// NodeOutputMap groups a node's output ties by destination channel. Each tie
// names the destination node and the channel it reads into.
func (g *Graph) NodeOutputMap(n *node.Node) map[channel.Channel][]Tie {
	out := make(map[channel.Channel][]Tie)
	for _, e := range g.topology.OutEdges(n.UID()) {
		dst, ok := g.topology.Node(e.Key.To)
		if !ok {
			continue
		}
		out[e.Key.Channel] = append(out[e.Key.Channel], Tie{Node: dst, Channel: e.Attrs.ToChannel, Index: e.Attrs.Index})
	}
	for ch := range out {
		sortTies(out[ch])
	}
	return out
}

// NodeOutputsFromChannel returns the nodes drawing on n's fromCh output,
// grouped by the channel they read it into.
func (g *Graph) NodeOutputsFromChannel(n *node.Node, fromCh channel.Channel) map[channel.Channel][]*node.Node {
	out := make(map[channel.Channel][]*node.Node)
	for _, e := range g.topology.OutEdges(n.UID()) {
		if e.Attrs.FromChannel != fromCh {
			continue
		}
		if dst, ok := g.topology.Node(e.Key.To); ok {
			out[e.Key.Channel] = append(out[e.Key.Channel], dst)
		}
	}
	return out
}

func sortTies(ties []Tie) {
	rank := func(t Tie) int {
		if t.Index < 0 {
			return int(^uint(0) >> 1)
		}
		return t.Index
	}
	sort.SliceStable(ties, func(i, j int) bool { return rank(ties[i]) < rank(ties[j]) })
}

// SourceNodesForChannel returns the distinct nodes feeding n on ch.
func (g *Graph) SourceNodesForChannel(n *node.Node, ch channel.Channel) []*node.Node {
	return distinct(g.NodeInputMap(n)[ch])
}

// DestNodesForChannel returns the distinct nodes n feeds on ch.
func (g *Graph) DestNodesForChannel(n *node.Node, ch channel.Channel) []*node.Node {
	return distinct(g.NodeOutputMap(n)[ch])
}

func distinct(ties []Tie) []*node.Node {
	seen := make(map[*node.Node]struct{}, len(ties))
	var out []*node.Node
	for _, t := range ties {
		if _, ok := seen[t.Node]; ok {
			continue
		}
		seen[t.Node] = struct{}{}
		out = append(out, t.Node)
	}
	return out
}

// TreeChildren returns the nodes parented under n through Tree edges.
func (g *Graph) TreeChildren(n *node.Node) []*node.Node {
	return g.DestNodesForChannel(n, channel.Tree)
}

// TreeParent returns the node n is parented under through a Tree edge.
func (g *Graph) TreeParent(n *node.Node) (*node.Node, bool) {
	parents := g.SourceNodesForChannel(n, channel.Tree)
	if len(parents) == 0 {
		return nil, false
	}
	return parents[0], true
}

// Select returns the nodes matched by f.
func (g *Graph) Select(f query.Filter) []*node.Node {
	return query.Nodes(g.topology.Nodes(), f)
}

// SelectEdges returns the edges among the nodes matched by f.
func (g *Graph) SelectEdges(f query.Filter) []topologystore.Edge {
	return query.Edges(g.topology.Edges(), g.Select(f))
}
