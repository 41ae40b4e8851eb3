package uibridge

import (
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/topologystore"
)

// Event names emitted to the UI.
const (
	EventNodesChanged = "nodes_changed"
	EventEdgesChanged = "edges_changed"
	EventDelta        = "delta"
	EventCurrentNode  = "current_node"
)

// NodeInfo describes a node to the UI.
type NodeInfo struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// EdgeInfo describes an edge to the UI.
type EdgeInfo struct {
	From        string `json:"from"`
	To          string `json:"to"`
	FromChannel string `json:"from_channel"`
	ToChannel   string `json:"to_channel"`
	Index       int    `json:"index"`
}

// NodesPayload is sent with EventNodesChanged.
type NodesPayload struct {
	Added   []NodeInfo `json:"added"`
	Removed []NodeInfo `json:"removed"`
}

// EdgesPayload is sent with EventEdgesChanged.
type EdgesPayload struct {
	Added   []EdgeInfo `json:"added"`
	Removed []EdgeInfo `json:"removed"`
}

// DeltaPayload is sent with EventDelta.
type DeltaPayload struct {
	Nodes NodesPayload `json:"nodes"`
	Edges EdgesPayload `json:"edges"`
}

// CurrentNodePayload is sent with EventCurrentNode. Node is nil when an
// evaluation run ends.
type CurrentNodePayload struct {
	Node *NodeInfo `json:"node"`
}

func nodeInfo(n *node.Node) NodeInfo {
	return NodeInfo{UID: n.UID(), Name: n.Name(), Type: n.TypeName()}
}

func edgeInfo(e topologystore.Edge) EdgeInfo {
	return EdgeInfo{
		From:        e.Key.From,
		To:          e.Key.To,
		FromChannel: e.Attrs.FromChannel.String(),
		ToChannel:   e.Attrs.ToChannel.String(),
		Index:       e.Attrs.Index,
	}
}

// NewNodesPayload converts a node delta. Entries are ordered by uid.
func NewNodesPayload(d graph.NodeDelta) NodesPayload {
	p := NodesPayload{Added: []NodeInfo{}, Removed: []NodeInfo{}}
	for _, uid := range d.AddedUIDs() {
		p.Added = append(p.Added, nodeInfo(d.Added[uid]))
	}
	for _, uid := range d.RemovedUIDs() {
		p.Removed = append(p.Removed, nodeInfo(d.Removed[uid]))
	}
	return p
}

// NewEdgesPayload converts an edge delta.
func NewEdgesPayload(d graph.EdgeDelta) EdgesPayload {
	p := EdgesPayload{Added: []EdgeInfo{}, Removed: []EdgeInfo{}}
	for _, e := range d.AddedEdges() {
		p.Added = append(p.Added, edgeInfo(e))
	}
	for _, e := range d.RemovedEdges() {
		p.Removed = append(p.Removed, edgeInfo(e))
	}
	return p
}

// NewDeltaPayload converts a full delta.
func NewDeltaPayload(d graph.Delta) DeltaPayload {
	return DeltaPayload{Nodes: NewNodesPayload(d.Nodes), Edges: NewEdgesPayload(d.Edges)}
}

// NewCurrentNodePayload converts the scheduler's current node.
func NewCurrentNodePayload(n *node.Node) CurrentNodePayload {
	if n == nil {
		return CurrentNodePayload{}
	}
	info := nodeInfo(n)
	return CurrentNodePayload{Node: &info}
}
