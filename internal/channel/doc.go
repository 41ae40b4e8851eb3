// Package channel defines the named tags that classify what kind of information
// flows along an edge or is cached as a node output.
//
// A channel is an identity only: it carries no behaviour of its own. Node types
// decide what they emit for a channel, and the graph store keys edges by the
// destination channel. The set of channels is extensible at runtime through
// Register; the builtin channels are always present.
package channel
