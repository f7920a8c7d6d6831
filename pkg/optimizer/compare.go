package optimizer

import (
	"context"
	"fmt"

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/workflow"
)

// CompareConfigurations executes two workflow trees against the same input
// and scores both against the same expected output, without running the
// optimization loop. The two evaluations run concurrently.
func (o *Optimizer) CompareConfigurations(ctx context.Context, a, b *models.AgentNode, input models.ExecutionInput, expected string, objective models.Objective) (*models.Comparison, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: both configurations are required", ErrConfiguration)
	}

	type outcome struct {
		score float64
		err   error
	}

	evaluate := func(tree *models.AgentNode, ch chan<- outcome) {
		output, rawTrace, err := o.executor.Run(ctx, tree, input)
		if err != nil {
			ch <- outcome{err: err}

			return
		}

		entries, err := o.extractor.ExtractTrace(rawTrace)
		if err != nil {
			ch <- outcome{err: err}

			return
		}

		evaluation, err := o.evaluator.Evaluate(ctx, output, expected, entries, objective)
		if err != nil {
			ch <- outcome{err: err}

			return
		}

		ch <- outcome{score: evaluation.OverallScore}
	}

	chA := make(chan outcome, 1)
	chB := make(chan outcome, 1)

	go evaluate(a, chA)
	go evaluate(b, chB)

	resultA := <-chA
	resultB := <-chB

	if resultA.err != nil {
		return nil, fmt.Errorf("evaluating configuration A: %w", resultA.err)
	}

	if resultB.err != nil {
		return nil, fmt.Errorf("evaluating configuration B: %w", resultB.err)
	}

	comparison := &models.Comparison{
		ScoreA:          resultA.score,
		ScoreB:          resultB.score,
		ScoreDifference: resultA.score - resultB.score,
	}

	switch {
	case resultA.score > resultB.score:
		comparison.Winner = "a"
	case resultB.score > resultA.score:
		comparison.Winner = "b"
	default:
		comparison.Winner = "tie"
	}

	if models.SameShape(a, b) {
		diff, err := workflow.Diff(a, b)
		if err == nil {
			comparison.DiffSummary = diff
		}
	} else {
		comparison.ShapesDiffer = true
	}

	return comparison, nil
}
