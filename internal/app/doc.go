// Package app contains the core application logic. It wires the registry,
// graph, scheduler, metrics and UI bridge together and runs one evaluation
// of a grid, decoupled from any specific entrypoint like a CLI or server.
package app
