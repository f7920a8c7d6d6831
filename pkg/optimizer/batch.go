package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/dukex/agentopt/pkg/models"
)

// defaultBatchConcurrency bounds how many runs execute at once; each run
// already fans out provider calls for parallel branches.
const defaultBatchConcurrency = 4

// BatchResult pairs one input's outcome with the error its run terminated
// with, if any.
type BatchResult struct {
	Result *models.OptimizationResult
	Err    error
}

type batchOptions struct {
	maxConcurrent int
	runTimeout    time.Duration
}

// BatchOption tunes a BatchOptimize call.
type BatchOption func(*batchOptions)

// WithMaxConcurrent overrides how many runs may execute at once. Values
// below 1 keep the default.
func WithMaxConcurrent(n int) BatchOption {
	return func(o *batchOptions) {
		if n >= 1 {
			o.maxConcurrent = n
		}
	}
}

// WithRunTimeout bounds the wall clock of each individual run. A run that
// exceeds it terminates as failed, like any other cancelled run.
func WithRunTimeout(d time.Duration) BatchOption {
	return func(o *batchOptions) {
		if d > 0 {
			o.runTimeout = d
		}
	}
}

// BatchOptimize runs one optimization per input and returns results
// index-aligned with the inputs. A failed run occupies its slot with a
// failed result; it never aborts the other runs, and BatchOptimize itself
// never returns an error.
func (o *Optimizer) BatchOptimize(ctx context.Context, inputs []models.OptimizationInput, opts ...BatchOption) []BatchResult {
	options := batchOptions{maxConcurrent: defaultBatchConcurrency}
	for _, opt := range opts {
		opt(&options)
	}

	results := make([]BatchResult, len(inputs))

	sem := make(chan struct{}, options.maxConcurrent)

	var wg sync.WaitGroup

	for i, input := range inputs {
		wg.Add(1)

		go func(i int, input models.OptimizationInput) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			runCtx := ctx

			if options.runTimeout > 0 {
				var cancel context.CancelFunc

				runCtx, cancel = context.WithTimeout(ctx, options.runTimeout)
				defer cancel()
			}

			result, err := o.Optimize(runCtx, input)
			results[i] = BatchResult{Result: result, Err: err}
		}(i, input)
	}

	wg.Wait()

	return results
}
