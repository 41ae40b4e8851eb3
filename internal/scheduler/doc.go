// Package scheduler decides when node records compute.
//
// # How It Works
//
// The scheduler keeps a dirty flag per uid; a uid it has never seen is dirty.
// EvalNodes plans a queue from a target set: the targets plus all of their
// ancestors, laid out in topological generations. It then walks the queue,
// skipping clean nodes and executing dirty ones, and commits each output to
// the graph's cache the moment the node finishes.
//
// Evaluation may change the graph itself, for example a node that
// regenerates part of its surroundings. Any structural change observed while
// a node executes causes the queue to be rebuilt from the targets against the
// current graph. Nodes already clean are skipped on the new queue, so
// regenerated nodes keeping their uids are not evaluated twice.
//
// # Errors
//
// A cycle among the planned nodes fails the run with ErrCyclicDependency
// before anything executes. A failing node aborts the rest of the queue with
// a *NodeExecutionError; outputs committed before the failure stay cached.
package scheduler
