package grid

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/nodeweave/internal/channel"
)

// fileRoot decodes every top-level block of one file.
type fileRoot struct {
	Nodes    []*nodeBlock     `hcl:"node,block"`
	Connects []*connectBlock  `hcl:"connect,block"`
	Evaluate []*evaluateBlock `hcl:"evaluate,block"`
	Remain   hcl.Body         `hcl:",remain"`
}

type nodeBlock struct {
	Type   string         `hcl:"type,label"`
	Name   string         `hcl:"name,label"`
	UID    *string        `hcl:"uid,optional"`
	Params hcl.Expression `hcl:"params,optional"`
}

type connectBlock struct {
	From        string  `hcl:"from"`
	To          string  `hcl:"to"`
	FromChannel *string `hcl:"from_channel,optional"`
	ToChannel   *string `hcl:"to_channel,optional"`
	Index       *int    `hcl:"index,optional"`
}

type evaluateBlock struct {
	Targets []string `hcl:"targets"`
}

// Definition is a loaded grid, independent of any graph.
type Definition struct {
	Nodes       []NodeSpec
	Connections []ConnectionSpec
	// Targets names the nodes to evaluate, by name or uid.
	Targets []string
}

// NodeSpec describes one node to create.
type NodeSpec struct {
	Type string
	Name string
	// UID is empty when the file does not fix one.
	UID    string
	Params map[string]any
}

// ConnectionSpec describes one edge. From and To are node names or uids.
type ConnectionSpec struct {
	From        string
	To          string
	FromChannel channel.Channel
	ToChannel   channel.Channel
	// Index is topologystore.UnorderedIndex when the file gives none.
	Index int
}
