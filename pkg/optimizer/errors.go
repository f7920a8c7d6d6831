// Package optimizer runs the closed-loop instruction optimization over an
// agent workflow tree.
package optimizer

import "errors"

var (
	// ErrConfiguration indicates the run was rejected before the first
	// iteration because its input or tuning parameters are invalid.
	ErrConfiguration = errors.New("invalid optimization configuration")

	// ErrRunFailed indicates a run terminated with reason "failed". The
	// returned result still carries the history up to the failure.
	ErrRunFailed = errors.New("optimization run failed")
)
