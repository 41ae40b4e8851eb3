// Package nodestore defines the interface for the per-node, per-channel
// output cache.
//
// # Why Node Store Exists
//
// The node store keeps computed data apart from graph structure, which lives
// in topologystore. The scheduler commits each node's Flow output here the
// moment the node finishes, so partial results of an aborted evaluation stay
// readable. Entries are dropped when their node is removed from the graph.
//
// # Lifecycle
//
//  1. Created empty with the graph.
//  2. Written by the scheduler (SetOutput, SetError) as nodes execute.
//  3. Read by the graph when a consumer draws Flow data from a cached source,
//     and by Serialise for output.
//  4. Dropped per node on removal, or cleared with the graph.
package nodestore

import (
	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/snapshot"
)

// Store is the interface for cached node outputs.
//
// Implementations must be safe for concurrent reads and writes.
type Store interface {
	// SetOutput records the latest output of a node on one channel.
	SetOutput(uid string, ch channel.Channel, out *snapshot.Snapshot)
	// Output returns the cached output, if any.
	Output(uid string, ch channel.Channel) (*snapshot.Snapshot, bool)
	// SetError records the last execution failure of a node. A nil error
	// clears it.
	SetError(uid string, err error)
	// Error returns the last recorded failure, or nil.
	Error(uid string) error
	// Drop removes every entry held for a node.
	Drop(uid string)
	// Clear removes every entry.
	Clear()
	// UIDs returns the nodes with at least one cached output, sorted.
	UIDs() []string
	// Serialise returns uid -> channel name -> serialised snapshot.
	Serialise() map[string]map[string]any
}
