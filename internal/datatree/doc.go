// Package datatree implements the hierarchical key→value store that every node
// owns and that snapshots carry between nodes.
//
// A Tree is a named branch with an optional value and ordered child branches.
// Root trees carry a uid, which is how snapshots index them. Branches are
// addressed with keypath paths such as `transform.translate.x`.
//
// Trees are not safe for concurrent mutation.
package datatree
