// Package suggester turns critic feedback into rewritten agent
// instructions.
package suggester

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

// ErrSuggestion indicates the suggester could not produce a usable rewrite.
var ErrSuggestion = errors.New("suggestion failed")

// Suggestion is a proposed instruction rewrite for one leaf agent.
type Suggestion struct {
	NewInstruction string  `json:"new_instruction"`
	Reason         string  `json:"reason"`
	Confidence     float64 `json:"confidence"`
}

// objectiveGuidance steers the rewrite toward the optimization objective.
var objectiveGuidance = map[models.Objective]string{
	models.ObjectiveAccuracy:             "Make the instruction demand correct, complete answers that match the expected output.",
	models.ObjectiveFluency:              "Make the instruction demand clear, well-structured, natural prose.",
	models.ObjectiveFactuality:           "Make the instruction forbid unsupported claims and require grounding every statement in the input.",
	models.ObjectiveInstructionFollowing: "Make the instruction spell out the exact format and constraints the output must satisfy.",
}

// Suggester asks an LLM to rewrite a single leaf instruction based on the
// critic's feedback for that leaf.
type Suggester struct {
	provider providers.Provider
	model    string
	logger   *slog.Logger
}

// New creates a suggester that rewrites instructions with the given model.
func New(provider providers.Provider, model string, logger *slog.Logger) *Suggester {
	return &Suggester{
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Suggest proposes a replacement instruction for the leaf at path. The
// provider is retried once on failure; a response that cannot be turned into
// a non-empty instruction fails with ErrSuggestion.
func (s *Suggester) Suggest(ctx context.Context, path, current, feedback string, objective models.Objective) (*Suggestion, error) {
	if strings.TrimSpace(current) == "" {
		return nil, fmt.Errorf("%w: current instruction for %s is empty", ErrSuggestion, path)
	}

	prompt := s.buildPrompt(path, current, feedback, objective)

	raw, err := s.provider.Generate(ctx, prompt, s.model)
	if err != nil {
		s.logger.WarnContext(ctx, "Suggestion call failed, retrying", "path", path, "error", err)

		raw, err = s.provider.Generate(ctx, prompt, s.model)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSuggestion, err)
	}

	suggestion := parseSuggestion(raw)
	if strings.TrimSpace(suggestion.NewInstruction) == "" {
		return nil, fmt.Errorf("%w: model returned an empty instruction for %s", ErrSuggestion, path)
	}

	return suggestion, nil
}

func (s *Suggester) buildPrompt(path, current, feedback string, objective models.Objective) string {
	guidance, ok := objectiveGuidance[objective]
	if !ok {
		guidance = objectiveGuidance[models.ObjectiveAccuracy]
	}

	var b strings.Builder

	b.WriteString("You are improving the instruction of one agent inside a multi-agent workflow.\n\n")
	b.WriteString("Agent: ")
	b.WriteString(path)
	b.WriteString("\nOptimization objective: ")
	b.WriteString(string(objective))
	b.WriteString("\n")
	b.WriteString(guidance)
	b.WriteString("\n\nCurrent instruction:\n")
	b.WriteString(current)
	b.WriteString("\n\nEvaluator feedback:\n")
	b.WriteString(feedback)
	b.WriteString("\n\nRewrite the instruction to address the feedback. Keep the agent's role; change only how it works. ")
	b.WriteString("Respond with a JSON object only: ")
	b.WriteString(`{"new_instruction": "<rewritten instruction>", "reason": "<one sentence>", "confidence": <0.0-1.0>}`)

	return b.String()
}

// parseSuggestion reads the JSON envelope out of the response; when no JSON
// object is present the whole response is taken as the raw instruction
// text, since some models answer with the rewrite directly.
func parseSuggestion(raw string) *Suggestion {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')

	if start >= 0 && end > start {
		var suggestion Suggestion
		if err := json.Unmarshal([]byte(raw[start:end+1]), &suggestion); err == nil {
			return &suggestion
		}
	}

	return &Suggestion{
		NewInstruction: strings.TrimSpace(raw),
		Reason:         "model returned plain text instead of the JSON envelope",
		Confidence:     0.3,
	}
}
