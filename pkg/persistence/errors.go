// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAgentConfigNotFound indicates no stored agent configuration exists
	// for the given identifier.
	ErrAgentConfigNotFound = errors.New("agent config not found")

	// ErrResultNotFound indicates no optimization result exists for the
	// given identifier.
	ErrResultNotFound = errors.New("optimization result not found")
)

// AgentConfigError wraps agent-config storage errors with operation context.
type AgentConfigError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	ConfigID string // Agent config ID if applicable
	Err      error  // Underlying error
}

func (e *AgentConfigError) Error() string {
	return fmt.Sprintf("%s operation failed for agent config %s: %v", e.Op, e.ConfigID, e.Err)
}

func (e *AgentConfigError) Unwrap() error {
	return e.Err
}

func (e *AgentConfigError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAgentConfigError creates a new agent config error with context.
func NewAgentConfigError(op, configID string, err error) *AgentConfigError {
	return &AgentConfigError{
		Op:       op,
		ConfigID: configID,
		Err:      err,
	}
}

// ResultError wraps result storage errors with operation context.
type ResultError struct {
	Op       string // Operation being performed
	ResultID string // Result ID if applicable
	Err      error  // Underlying error
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s operation failed for result %s: %v", e.Op, e.ResultID, e.Err)
}

func (e *ResultError) Unwrap() error {
	return e.Err
}

func (e *ResultError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewResultError creates a new result error with context.
func NewResultError(op, resultID string, err error) *ResultError {
	return &ResultError{
		Op:       op,
		ResultID: resultID,
		Err:      err,
	}
}

// IsAgentConfigNotFound checks if an error indicates a missing agent config.
func IsAgentConfigNotFound(err error) bool {
	return errors.Is(err, ErrAgentConfigNotFound)
}

// IsResultNotFound checks if an error indicates a missing result.
func IsResultNotFound(err error) bool {
	return errors.Is(err, ErrResultNotFound)
}
