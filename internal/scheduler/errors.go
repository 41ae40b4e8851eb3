package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrCyclicDependency is returned when the planned nodes contain a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrNodeExecution is matched by every *NodeExecutionError.
	ErrNodeExecution = errors.New("node execution failed")
)

// NodeExecutionError reports the node whose execution failed.
type NodeExecutionError struct {
	UID  string
	Name string
	Type string
	Err  error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("%s: node '%s' (%s, type %s): %v", ErrNodeExecution, e.Name, e.UID, e.Type, e.Err)
}

// Unwrap exposes both ErrNodeExecution and the underlying cause.
func (e *NodeExecutionError) Unwrap() []error {
	return []error{ErrNodeExecution, e.Err}
}
