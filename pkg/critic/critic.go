// Package critic scores workflow outputs against expected outputs and turns
// the gap into per-agent feedback.
package critic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/providers"
)

// ErrEvaluation indicates the critic could not produce a score for the given
// inputs.
var ErrEvaluation = errors.New("evaluation failed")

// judgeWeight is how much of the overall score the LLM judge contributes
// when it is available, per objective.
var judgeWeight = map[models.Objective]float64{
	models.ObjectiveAccuracy:             0.5,
	models.ObjectiveFluency:              0.5,
	models.ObjectiveFactuality:           0.7,
	models.ObjectiveInstructionFollowing: 0.7,
}

// Critic evaluates a workflow's output against the expected output. Lexical
// metrics always run; when a judge provider is configured its score is
// blended in, and on judge failure the critic degrades to lexical-only
// scoring rather than failing the iteration.
type Critic struct {
	judge  providers.Provider
	model  string
	logger *slog.Logger
}

// Option customizes a Critic.
type Option func(*Critic)

// WithJudge attaches an LLM judge that refines the lexical score.
func WithJudge(judge providers.Provider, model string) Option {
	return func(c *Critic) {
		c.judge = judge
		c.model = model
	}
}

// New creates a critic. Without options it scores on lexical metrics alone.
func New(logger *slog.Logger, opts ...Option) *Critic {
	c := &Critic{logger: logger}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type judgeVerdict struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
	Feedback  string  `json:"feedback"`
}

// Evaluate scores the actual output and attributes feedback to the leaves
// that appear in the trace. Empty expected output or an empty trace is a
// caller defect and fails with ErrEvaluation.
func (c *Critic) Evaluate(ctx context.Context, actual, expected string, trace []models.TraceEntry, objective models.Objective) (*models.EvaluationResult, error) {
	if strings.TrimSpace(expected) == "" {
		return nil, fmt.Errorf("%w: expected output is empty", ErrEvaluation)
	}

	if len(trace) == 0 {
		return nil, fmt.Errorf("%w: execution trace is empty", ErrEvaluation)
	}

	metrics := lexicalMetrics(actual, expected)
	score := lexicalScore(metrics)
	rationale := fmt.Sprintf("lexical score %.3f (overlap %.2f, precision %.2f, recall %.2f)",
		score, metrics.WordOverlap, metrics.Precision, metrics.Recall)

	if c.judge != nil && !metrics.ExactMatch {
		verdict, err := c.askJudge(ctx, actual, expected, objective)
		if err != nil {
			c.logger.WarnContext(ctx, "Judge unavailable, keeping lexical score", "error", err)
		} else {
			weight := judgeWeight[objective]
			score = clamp01((1-weight)*score + weight*clamp01(verdict.Score))
			rationale = verdict.Rationale
		}
	}

	result := &models.EvaluationResult{
		OverallScore: score,
		LeafFeedback: c.attributeFeedback(trace, score, objective),
		Rationale:    rationale,
		Metrics:      metrics,
	}

	return result, nil
}

// attributeFeedback gives every traced leaf a feedback line. The last leaf
// in the trace shaped the final output most directly, so it carries the
// primary attribution.
func (c *Critic) attributeFeedback(trace []models.TraceEntry, score float64, objective models.Objective) map[string]string {
	feedback := make(map[string]string)

	lastPath := trace[len(trace)-1].Path

	for _, entry := range trace {
		if entry.Status == models.TraceStatusError {
			feedback[entry.Path] = "this agent failed during execution: " + entry.Error

			continue
		}

		if _, seen := feedback[entry.Path]; seen && entry.Path != lastPath {
			continue
		}

		switch {
		case score >= 0.9:
			feedback[entry.Path] = "output quality is high; keep the current behavior"
		case entry.Path == lastPath:
			feedback[entry.Path] = fmt.Sprintf("final output scored %.2f for %s; this agent produced the final text and should address the gap first", score, objective)
		default:
			feedback[entry.Path] = fmt.Sprintf("upstream contribution to an output that scored %.2f for %s; make this agent's output more directly useful to the next step", score, objective)
		}
	}

	return feedback
}

func (c *Critic) askJudge(ctx context.Context, actual, expected string, objective models.Objective) (*judgeVerdict, error) {
	prompt := judgePrompt(actual, expected, objective)

	raw, err := c.judge.Generate(ctx, prompt, c.model)
	if err != nil && errors.Is(err, providers.ErrProvider) {
		raw, err = c.judge.Generate(ctx, prompt, c.model)
	}

	if err != nil {
		return nil, err
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return nil, err
	}

	return verdict, nil
}

func judgePrompt(actual, expected string, objective models.Objective) string {
	var b strings.Builder

	b.WriteString("You are grading the output of an AI workflow. Objective: ")
	b.WriteString(string(objective))
	b.WriteString(".\n\nExpected output:\n")
	b.WriteString(expected)
	b.WriteString("\n\nActual output:\n")
	b.WriteString(actual)
	b.WriteString("\n\nRespond with a JSON object only: ")
	b.WriteString(`{"score": <0.0-1.0>, "rationale": "<one sentence>", "feedback": "<how to close the gap>"}`)

	return b.String()
}

// parseVerdict tolerates prose around the JSON object by slicing from the
// first opening brace to the last closing one.
func parseVerdict(raw string) (*judgeVerdict, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')

	if start < 0 || end <= start {
		return nil, fmt.Errorf("judge response carries no JSON object: %q", truncate(raw, 120))
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("decoding judge response: %w", err)
	}

	return &verdict, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
