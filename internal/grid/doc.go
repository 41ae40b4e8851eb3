/*
Package grid loads graph definitions written in HCL and builds them into a
graph.

A grid file declares nodes, the edges between them and the nodes to evaluate:

	node "increment" "A" {
	  params = { value = 1, by = 2 }
	}

	node "print" "out" {}

	connect {
	  from = "A"
	  to   = "out"
	}

	evaluate {
	  targets = ["out"]
	}

Channels default to Flow. Any number of files may be loaded together; their
blocks are merged in file order.
*/
package grid
