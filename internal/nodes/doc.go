// Package nodes provides the builtin node types. Register them with
//
//	reg := registry.New().Use(&nodes.Module{Out: os.Stdout})
package nodes
