package graph

import "errors"

// Graph mutation failures. All are caller errors, reported synchronously;
// a failed call leaves the graph unchanged.
var (
	// ErrDuplicateID indicates a task id is already present in the graph.
	ErrDuplicateID = errors.New("duplicate task id")
	// ErrUnknownDependency indicates a dependency references an id not in the graph.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrCycleDetected indicates a circular dependency was found in the task graph.
	ErrCycleDetected = errors.New("circular dependency detected")
	// ErrNoSuchTask indicates an operation referenced a task id not in the graph.
	ErrNoSuchTask = errors.New("no such task")
	// ErrTaskReferenced indicates a removal target still has dependent tasks.
	ErrTaskReferenced = errors.New("task is referenced by dependents")
)
