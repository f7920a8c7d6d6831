// Package workflow provides safe mutation, execution, and trace extraction
// for agent workflow trees.
package workflow

import "errors"

var (
	// ErrNodeNotFound indicates an edit path did not resolve to any node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNotALeaf indicates an edit path resolved to a container, which has
	// no instruction field.
	ErrNotALeaf = errors.New("node is not a leaf agent")

	// ErrShapeMismatch indicates two trees cannot be diffed because their
	// structure differs.
	ErrShapeMismatch = errors.New("tree shapes differ")

	// ErrExecution wraps any failure inside a workflow execution.
	ErrExecution = errors.New("workflow execution failed")

	// ErrTraceParse indicates a malformed raw trace. This is always an
	// integration defect and is never retried.
	ErrTraceParse = errors.New("malformed execution trace")

	// ErrNoVersion indicates a version index outside the recorded history.
	ErrNoVersion = errors.New("no such tree version")
)
