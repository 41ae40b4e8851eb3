package inmemorytopology

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/nodeweave/internal/topologystore"
)

type edgeEntry struct {
	attrs topologystore.EdgeAttrs
	seq   uint64
}

// Store implements topologystore.Store using maps and a mutex.
type Store[N topologystore.Vertex] struct {
	mu      sync.RWMutex
	nodes   map[string]N
	order   map[string]uint64
	edges   map[topologystore.EdgeKey]edgeEntry
	in      map[string]map[topologystore.EdgeKey]struct{}
	out     map[string]map[topologystore.EdgeKey]struct{}
	nextSeq uint64
}

var _ topologystore.Store[topologystore.Vertex] = (*Store[topologystore.Vertex])(nil)

// New creates a new, empty in-memory topology store.
func New[N topologystore.Vertex]() *Store[N] {
	s := &Store[N]{}
	s.reset()
	return s
}

func (s *Store[N]) reset() {
	s.nodes = make(map[string]N)
	s.order = make(map[string]uint64)
	s.edges = make(map[topologystore.EdgeKey]edgeEntry)
	s.in = make(map[string]map[topologystore.EdgeKey]struct{})
	s.out = make(map[string]map[topologystore.EdgeKey]struct{})
}

func (s *Store[N]) seq() uint64 {
	s.nextSeq++
	return s.nextSeq
}

// AddNode adds n, replacing any node held under the same uid. A replaced node
// keeps its position and its edges.
func (s *Store[N]) AddNode(n N) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addNodeLocked(n)
}

func (s *Store[N]) addNodeLocked(n N) {
	uid := n.UID()
	if _, exists := s.nodes[uid]; !exists {
		s.order[uid] = s.seq()
		s.in[uid] = make(map[topologystore.EdgeKey]struct{})
		s.out[uid] = make(map[topologystore.EdgeKey]struct{})
	}
	s.nodes[uid] = n
}

// AddNodes adds every node in order.
func (s *Store[N]) AddNodes(ns ...N) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range ns {
		s.addNodeLocked(n)
	}
}

// RemoveNode removes a node and all incident edges.
func (s *Store[N]) RemoveNode(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[uid]; !exists {
		return fmt.Errorf("%w: '%s'", topologystore.ErrMissingVertex, uid)
	}
	s.removeNodeLocked(uid)
	return nil
}

// RemoveNodes removes every listed node, skipping unknown uids.
func (s *Store[N]) RemoveNodes(uids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		if _, exists := s.nodes[uid]; exists {
			s.removeNodeLocked(uid)
		}
	}
}

func (s *Store[N]) removeNodeLocked(uid string) {
	for key := range s.in[uid] {
		s.removeEdgeLocked(key)
	}
	for key := range s.out[uid] {
		s.removeEdgeLocked(key)
	}
	delete(s.nodes, uid)
	delete(s.order, uid)
	delete(s.in, uid)
	delete(s.out, uid)
}

// AddEdge creates or updates an edge between two existing nodes.
func (s *Store[N]) AddEdge(e topologystore.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEdgeLocked(e)
}

func (s *Store[N]) addEdgeLocked(e topologystore.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, exists := s.nodes[e.Key.From]; !exists {
		return fmt.Errorf("%w: edge source '%s'", topologystore.ErrMissingVertex, e.Key.From)
	}
	if _, exists := s.nodes[e.Key.To]; !exists {
		return fmt.Errorf("%w: edge target '%s'", topologystore.ErrMissingVertex, e.Key.To)
	}

	if entry, exists := s.edges[e.Key]; exists {
		entry.attrs = e.Attrs
		s.edges[e.Key] = entry
		return nil
	}
	s.edges[e.Key] = edgeEntry{attrs: e.Attrs, seq: s.seq()}
	s.out[e.Key.From][e.Key] = struct{}{}
	s.in[e.Key.To][e.Key] = struct{}{}
	return nil
}

// AddEdges adds every edge, stopping at the first error. Edges added before
// the failure stay in place.
func (s *Store[N]) AddEdges(es ...topologystore.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range es {
		if err := s.addEdgeLocked(e); err != nil {
			return err
		}
	}
	return nil
}

// RemoveEdge removes one edge.
func (s *Store[N]) RemoveEdge(key topologystore.EdgeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edges[key]; !exists {
		return fmt.Errorf("%w: %s", topologystore.ErrMissingEdge, key)
	}
	s.removeEdgeLocked(key)
	return nil
}

// RemoveEdges removes every listed edge, skipping unknown keys.
func (s *Store[N]) RemoveEdges(keys ...topologystore.EdgeKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.removeEdgeLocked(key)
	}
}

func (s *Store[N]) removeEdgeLocked(key topologystore.EdgeKey) {
	if _, exists := s.edges[key]; !exists {
		return
	}
	delete(s.edges, key)
	delete(s.out[key.From], key)
	delete(s.in[key.To], key)
}

// Clear removes every node and edge.
func (s *Store[N]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Update adds nodes and then edges.
func (s *Store[N]) Update(nodes []N, edges []topologystore.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.addNodeLocked(n)
	}
	for _, e := range edges {
		if err := s.addEdgeLocked(e); err != nil {
			return err
		}
	}
	return nil
}

// Node returns the node held for uid.
func (s *Store[N]) Node(uid string) (N, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[uid]
	return n, ok
}

// HasNode reports whether uid is present.
func (s *Store[N]) HasNode(uid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[uid]
	return ok
}

// Nodes returns every node in insertion order.
func (s *Store[N]) Nodes() []N {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uids := s.sortedUIDsLocked()
	nodes := make([]N, len(uids))
	for i, uid := range uids {
		nodes[i] = s.nodes[uid]
	}
	return nodes
}

// NodeUIDs returns every uid in insertion order.
func (s *Store[N]) NodeUIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedUIDsLocked()
}

func (s *Store[N]) sortedUIDsLocked() []string {
	uids := make([]string, 0, len(s.nodes))
	for uid := range s.nodes {
		uids = append(uids, uid)
	}
	s.sortByOrderLocked(uids)
	return uids
}

func (s *Store[N]) sortByOrderLocked(uids []string) {
	sort.Slice(uids, func(i, j int) bool { return s.order[uids[i]] < s.order[uids[j]] })
}

// Len returns the number of nodes.
func (s *Store[N]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Edge returns the edge stored under key.
func (s *Store[N]) Edge(key topologystore.EdgeKey) (topologystore.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.edges[key]
	if !ok {
		return topologystore.Edge{}, false
	}
	return topologystore.Edge{Key: key, Attrs: entry.attrs}, true
}

// Edges returns every edge in insertion order.
func (s *Store[N]) Edges() []topologystore.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]topologystore.EdgeKey, 0, len(s.edges))
	for key := range s.edges {
		keys = append(keys, key)
	}
	return s.edgeListLocked(keys)
}

// InEdges returns the edges arriving at uid in insertion order.
func (s *Store[N]) InEdges(uid string) []topologystore.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgeSetLocked(s.in[uid])
}

// OutEdges returns the edges leaving uid in insertion order.
func (s *Store[N]) OutEdges(uid string) []topologystore.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgeSetLocked(s.out[uid])
}

func (s *Store[N]) edgeSetLocked(set map[topologystore.EdgeKey]struct{}) []topologystore.Edge {
	keys := make([]topologystore.EdgeKey, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	return s.edgeListLocked(keys)
}

func (s *Store[N]) edgeListLocked(keys []topologystore.EdgeKey) []topologystore.Edge {
	sort.Slice(keys, func(i, j int) bool { return s.edges[keys[i]].seq < s.edges[keys[j]].seq })
	edges := make([]topologystore.Edge, len(keys))
	for i, key := range keys {
		edges[i] = topologystore.Edge{Key: key, Attrs: s.edges[key].attrs}
	}
	return edges
}

// Predecessors returns the distinct direct sources of uid.
func (s *Store[N]) Predecessors(uid string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighboursLocked(s.in[uid], func(k topologystore.EdgeKey) string { return k.From })
}

// Successors returns the distinct direct targets of uid.
func (s *Store[N]) Successors(uid string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighboursLocked(s.out[uid], func(k topologystore.EdgeKey) string { return k.To })
}

func (s *Store[N]) neighboursLocked(set map[topologystore.EdgeKey]struct{}, end func(topologystore.EdgeKey) string) []string {
	seen := make(map[string]struct{}, len(set))
	uids := make([]string, 0, len(set))
	for key := range set {
		uid := end(key)
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		uids = append(uids, uid)
	}
	s.sortByOrderLocked(uids)
	return uids
}

// Ancestors returns every node with a path to uid, excluding uid itself.
func (s *Store[N]) Ancestors(uid string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reachLocked(uid, s.in, func(k topologystore.EdgeKey) string { return k.From })
}

// Descendants returns every node reachable from uid, excluding uid itself.
func (s *Store[N]) Descendants(uid string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reachLocked(uid, s.out, func(k topologystore.EdgeKey) string { return k.To })
}

func (s *Store[N]) reachLocked(start string, adj map[string]map[topologystore.EdgeKey]struct{}, end func(topologystore.EdgeKey) string) []string {
	seen := map[string]struct{}{start: {}}
	stack := []string{start}
	var found []string
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for key := range adj[cur] {
			next := end(key)
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			found = append(found, next)
			stack = append(stack, next)
		}
	}
	s.sortByOrderLocked(found)
	return found
}

// Subgraph returns an independent store holding the listed nodes and the
// edges between them. Unknown uids are ignored. Relative order is kept.
func (s *Store[N]) Subgraph(uids []string) topologystore.Store[N] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keep := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		if _, ok := s.nodes[uid]; ok {
			keep[uid] = struct{}{}
		}
	}
	members := make([]string, 0, len(keep))
	for uid := range keep {
		members = append(members, uid)
	}
	s.sortByOrderLocked(members)

	sub := New[N]()
	for _, uid := range members {
		sub.addNodeLocked(s.nodes[uid])
	}
	keys := make([]topologystore.EdgeKey, 0)
	for _, uid := range members {
		for key := range s.out[uid] {
			if _, ok := keep[key.To]; ok {
				keys = append(keys, key)
			}
		}
	}
	for _, e := range s.edgeListLocked(keys) {
		// Endpoints were added above, so this cannot fail.
		_ = sub.addEdgeLocked(e)
	}
	return sub
}

// TopologicalGenerations groups nodes into layers using Kahn's algorithm.
// Each layer lists its nodes in insertion order.
func (s *Store[N]) TopologicalGenerations() ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indegree := make(map[string]int, len(s.nodes))
	var current []string
	for _, uid := range s.sortedUIDsLocked() {
		indegree[uid] = len(s.neighboursLocked(s.in[uid], func(k topologystore.EdgeKey) string { return k.From }))
		if indegree[uid] == 0 {
			current = append(current, uid)
		}
	}

	var generations [][]string
	placed := 0
	for len(current) > 0 {
		generations = append(generations, current)
		placed += len(current)
		var next []string
		for _, uid := range current {
			for _, succ := range s.neighboursLocked(s.out[uid], func(k topologystore.EdgeKey) string { return k.To }) {
				indegree[succ]--
				if indegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		s.sortByOrderLocked(next)
		current = next
	}

	if placed != len(s.nodes) {
		var stuck []string
		for uid, d := range indegree {
			if d > 0 {
				stuck = append(stuck, uid)
			}
		}
		s.sortByOrderLocked(stuck)
		return nil, fmt.Errorf("%w: involving %s", topologystore.ErrCycle, strings.Join(stuck, ", "))
	}
	return generations, nil
}
