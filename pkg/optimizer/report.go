package optimizer

import (
	"fmt"
	"strings"

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/workflow"
)

// Report is a human-readable summary of a finished run.
type Report struct {
	OptimizationID    string                   `json:"optimization_id"`
	TerminationReason models.TerminationReason `json:"termination_reason"`
	BaselineScore     float64                  `json:"baseline_score"`
	FinalScore        float64                  `json:"final_score"`
	Improvement       float64                  `json:"improvement"`
	IterationsRun     int                      `json:"iterations_run"`
	BestIteration     int                      `json:"best_iteration"`
	ModifiedAgents    []string                 `json:"modified_agents,omitempty"`
	ScoreTrajectory   []float64                `json:"score_trajectory"`
}

// BuildReport summarizes a run, including which leaf instructions ended up
// different from the initial configuration.
func BuildReport(initial *models.AgentNode, result *models.OptimizationResult) (*Report, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: result is required", ErrConfiguration)
	}

	report := &Report{
		OptimizationID:    result.ID,
		TerminationReason: result.TerminationReason,
		BaselineScore:     result.BaselineScore,
		FinalScore:        result.FinalScore,
		Improvement:       result.FinalScore - result.BaselineScore,
		IterationsRun:     result.IterationsRun,
		BestIteration:     result.BestIteration,
	}

	for _, record := range result.History {
		if record.Evaluation != nil {
			report.ScoreTrajectory = append(report.ScoreTrajectory, record.Evaluation.OverallScore)
		}
	}

	if initial != nil && result.FinalAgentConfig != nil && models.SameShape(initial, result.FinalAgentConfig) {
		changes, err := workflow.Diff(initial, result.FinalAgentConfig)
		if err != nil {
			return nil, err
		}

		for _, change := range changes {
			report.ModifiedAgents = append(report.ModifiedAgents, change.Path)
		}
	}

	return report, nil
}

// String renders the report for CLI output.
func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Optimization %s: %s\n", r.OptimizationID, r.TerminationReason)
	fmt.Fprintf(&b, "  score: %.3f -> %.3f (%+.3f)\n", r.BaselineScore, r.FinalScore, r.Improvement)
	fmt.Fprintf(&b, "  iterations: %d (best at %d)\n", r.IterationsRun, r.BestIteration)

	if len(r.ModifiedAgents) > 0 {
		fmt.Fprintf(&b, "  modified agents: %s\n", strings.Join(r.ModifiedAgents, ", "))
	}

	return b.String()
}
