// Package node implements the node record: the active wrapper around one node's
// base data tree and override tree.
//
// A record answers Params() by resolving its live inputs. Records with no
// inbound Params edge return their own base tree. Records with one or more
// inbound Params edges are references: their incoming trees are composited
// into one and the record's override tree is applied on top.
//
// Node types customise behaviour by implementing any of the optional
// interfaces in this package (Compositor, Transformer, DataTransformer,
// Executor, ChannelOutputter, ParamDefaulter). Everything they do not
// implement falls back to the default protocol.
//
// A record reaches its inputs through a Resolver, which the graph store binds
// when the record is added to it. Every public resolution starts a Scope that
// travels with that call chain only, so concurrent readers never see each
// other's progress while a true loop still fails with ErrCyclicResolution.
package node
