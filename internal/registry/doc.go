// Package registry is the node type catalogue.
//
// The graph never constructs node behaviour directly: it asks a Catalogue to
// resolve a type name and calls the returned factory. Registry is the
// in-memory Catalogue used by the application. Node type packages populate it
// through the Module interface during startup, and Validate checks that every
// factory produces what its registration claims before any graph is built.
package registry
