/*
Package keypath provides a structured representation for addressing values
inside a node data tree.

The format is a dot-separated sequence of branch names, e.g.
`transform.translate.x`. This package enforces the path schema and centralizes
formatting and parsing so every caller addresses tree branches the same way.
*/
package keypath
