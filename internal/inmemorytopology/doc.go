// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface. Iteration order is always insertion
// order so that planning is deterministic.
package inmemorytopology
