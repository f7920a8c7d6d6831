package critic

import (
	"math"
	"strings"

	"github.com/dukex/agentopt/pkg/models"
)

// tokenize lowercases and splits on whitespace. Scoring is intentionally
// insensitive to case and spacing, not to punctuation.
func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func tokenCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}

	return counts
}

// lexicalMetrics computes reference-based surface metrics between the actual
// and expected outputs. All values land in [0, 1].
func lexicalMetrics(actual, expected string) models.ScoringMetrics {
	if strings.TrimSpace(actual) == strings.TrimSpace(expected) {
		return models.ScoringMetrics{
			WordOverlap: 1,
			Precision:   1,
			Recall:      1,
			ExactMatch:  true,
		}
	}

	actualTokens := tokenize(actual)
	expectedTokens := tokenize(expected)

	if len(actualTokens) == 0 || len(expectedTokens) == 0 {
		return models.ScoringMetrics{}
	}

	actualCounts := tokenCounts(actualTokens)
	expectedCounts := tokenCounts(expectedTokens)

	overlap := 0

	for token, count := range actualCounts {
		if expected, ok := expectedCounts[token]; ok {
			overlap += min(count, expected)
		}
	}

	metrics := models.ScoringMetrics{
		WordOverlap: float64(overlap) / float64(max(len(actualTokens), len(expectedTokens))),
		Precision:   float64(overlap) / float64(len(actualTokens)),
		Recall:      float64(overlap) / float64(len(expectedTokens)),
	}

	// Brevity penalty keeps short answers from gaming precision.
	if len(actualTokens) < len(expectedTokens) {
		penalty := math.Exp(1 - float64(len(expectedTokens))/float64(len(actualTokens)))
		metrics.Precision *= penalty
	}

	return metrics
}

// lexicalScore blends the surface metrics into one scalar. Weights follow
// overlap-heavy scoring so paraphrases that reuse the reference vocabulary
// still rank above unrelated text.
func lexicalScore(metrics models.ScoringMetrics) float64 {
	if metrics.ExactMatch {
		return 1
	}

	return clamp01(0.4*metrics.WordOverlap + 0.3*metrics.Precision + 0.3*metrics.Recall)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
