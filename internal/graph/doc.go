// Package graph provides the facade over a channel-typed node graph,
// combining structure, node data resolution and cached outputs.
//
// # Architecture
//
// The Graph is a facade over two stores:
//
//	┌─────────────────────────────────────┐
//	│            Graph Facade             │
//	│ (create/connect/query, resolution,  │
//	│  change notification)               │
//	└──────────┬────────────┬─────────────┘
//	           │            │
//	           ▼            ▼
//	  ┌────────────────┐  ┌────────────┐
//	  │ delta.Tracker  │  │ Node Store │
//	  │  ▼ topology    │  │ (outputs)  │
//	  └────────────────┘  └────────────┘
//
// The topology store is owned by a delta.Tracker, so every structural
// mutation goes through the tracker and is reported on the change streams.
// The graph never exposes the raw store.
//
// # Resolution
//
// Graph implements node.Resolver. A record asks the graph for the combined
// outputs of its inputs on a channel; the graph asks each input record for
// its output on the tie's source channel and merges the results.
//
// # Thread-Safety
//
// Both stores are safe for concurrent use, so observers may read while the
// owner mutates. Mutation and evaluation themselves are expected to run on
// a single goroutine.
package graph
