// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface. It is suitable for any graph whose cached
// outputs fit comfortably in memory.
package inmemorystore
