// Package providers defines the LLM call boundary used by the executor,
// critic, and suggester.
package providers

import (
	"context"
	"errors"
)

// ErrProvider wraps any failure of the underlying model call. The core loop
// never retries these automatically; the calling component decides.
var ErrProvider = errors.New("provider call failed")

// Provider turns a prompt into generated text using the named model. A
// Provider must be safe for concurrent use; parallel workflow branches and
// batch runs share one instance.
type Provider interface {
	Generate(ctx context.Context, prompt string, model string) (string, error)
}
