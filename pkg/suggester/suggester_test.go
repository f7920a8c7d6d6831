package suggester

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/providers"
)

type stubProvider struct {
	responses []string
	errs      []error
	prompts   []string
}

func (p *stubProvider) Generate(_ context.Context, prompt string, _ string) (string, error) {
	i := len(p.prompts)
	p.prompts = append(p.prompts, prompt)

	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}

	if i < len(p.responses) {
		return p.responses[i], nil
	}

	return "", fmt.Errorf("%w: no scripted response", providers.ErrProvider)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSuggestParsesJSONEnvelope(t *testing.T) {
	provider := &stubProvider{responses: []string{
		`{"new_instruction": "Summarize in exactly three bullet points.", "reason": "output lacked structure", "confidence": 0.8}`,
	}}
	s := New(provider, "gpt-4o", testLogger())

	suggestion, err := s.Suggest(context.Background(), "root/summarizer",
		"Summarize the text.", "output was unstructured", models.ObjectiveInstructionFollowing)
	require.NoError(t, err)

	assert.Equal(t, "Summarize in exactly three bullet points.", suggestion.NewInstruction)
	assert.Equal(t, "output lacked structure", suggestion.Reason)
	assert.InDelta(t, 0.8, suggestion.Confidence, 1e-9)
}

func TestSuggestFallsBackToRawTextResponse(t *testing.T) {
	provider := &stubProvider{responses: []string{
		"Summarize the text in three short bullet points, citing the source line for each.",
	}}
	s := New(provider, "gpt-4o", testLogger())

	suggestion, err := s.Suggest(context.Background(), "root/summarizer",
		"Summarize the text.", "needs citations", models.ObjectiveAccuracy)
	require.NoError(t, err)

	assert.Equal(t, "Summarize the text in three short bullet points, citing the source line for each.", suggestion.NewInstruction)
	assert.InDelta(t, 0.3, suggestion.Confidence, 1e-9)
}

func TestSuggestRetriesOnceOnProviderFailure(t *testing.T) {
	provider := &stubProvider{
		errs:      []error{fmt.Errorf("%w: timeout", providers.ErrProvider)},
		responses: []string{"", `{"new_instruction": "Be precise.", "reason": "retry worked", "confidence": 0.5}`},
	}
	s := New(provider, "gpt-4o", testLogger())

	suggestion, err := s.Suggest(context.Background(), "root/a", "Do it.", "vague", models.ObjectiveAccuracy)
	require.NoError(t, err)

	assert.Len(t, provider.prompts, 2)
	assert.Equal(t, "Be precise.", suggestion.NewInstruction)
}

func TestSuggestFailsAfterSecondProviderError(t *testing.T) {
	provider := &stubProvider{errs: []error{
		fmt.Errorf("%w: timeout", providers.ErrProvider),
		fmt.Errorf("%w: timeout", providers.ErrProvider),
	}}
	s := New(provider, "gpt-4o", testLogger())

	_, err := s.Suggest(context.Background(), "root/a", "Do it.", "vague", models.ObjectiveAccuracy)
	require.ErrorIs(t, err, ErrSuggestion)
	assert.Len(t, provider.prompts, 2)
}

func TestSuggestRejectsEmptyRewrite(t *testing.T) {
	provider := &stubProvider{responses: []string{`{"new_instruction": "   ", "reason": "", "confidence": 0.1}`}}
	s := New(provider, "gpt-4o", testLogger())

	_, err := s.Suggest(context.Background(), "root/a", "Do it.", "vague", models.ObjectiveAccuracy)
	require.ErrorIs(t, err, ErrSuggestion)
}

func TestSuggestRejectsEmptyCurrentInstruction(t *testing.T) {
	s := New(&stubProvider{}, "gpt-4o", testLogger())

	_, err := s.Suggest(context.Background(), "root/a", "", "vague", models.ObjectiveAccuracy)
	require.ErrorIs(t, err, ErrSuggestion)
}

func TestSuggestPromptCarriesObjectiveGuidance(t *testing.T) {
	provider := &stubProvider{responses: []string{`{"new_instruction": "x", "reason": "r", "confidence": 0.5}`}}
	s := New(provider, "gpt-4o", testLogger())

	_, err := s.Suggest(context.Background(), "root/a", "Do it.", "hallucinated a date", models.ObjectiveFactuality)
	require.NoError(t, err)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "unsupported claims")
	assert.Contains(t, provider.prompts[0], "hallucinated a date")
	assert.Contains(t, provider.prompts[0], "root/a")
}
