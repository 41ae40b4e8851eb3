// Package delta tracks structural changes to a topology.
//
// A Tracker owns a topologystore.Store and is the only way to mutate it.
// Every mutator snapshots the node and edge sets before and after calling the
// store and reports the differences as a NodeDelta and an EdgeDelta.
//
// Three signals are exposed. Raw fires once per mutating call, including
// while gathering is paused. NodesChanged and EdgesChanged fire with
// coalesced deltas: immediately when not paused, or once per kind when the
// outermost Resume flushes a paused region.
package delta
