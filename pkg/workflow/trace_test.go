package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/agentopt/pkg/models"
)

func validRawEvent(seq int, path string) RawEvent {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second)

	return RawEvent{
		Seq:         seq,
		Path:        path,
		Instruction: "Do the work.",
		Input:       "in",
		Output:      "out",
		StartedAt:   started,
		FinishedAt:  started.Add(500 * time.Millisecond),
	}
}

func TestExtractTraceOrdersBySeq(t *testing.T) {
	raw := &RawTrace{Events: []RawEvent{
		validRawEvent(2, "root/c"),
		validRawEvent(0, "root/a"),
		validRawEvent(1, "root/b"),
	}}

	entries, err := NewTraceExtractor().ExtractTrace(raw)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "root/a", entries[0].Path)
	assert.Equal(t, "root/b", entries[1].Path)
	assert.Equal(t, "root/c", entries[2].Path)
	assert.Equal(t, models.TraceStatusOK, entries[0].Status)
}

func TestExtractTraceMarksFailedInvocations(t *testing.T) {
	failed := validRawEvent(0, "root/a")
	failed.Err = "timeout"

	entries, err := NewTraceExtractor().ExtractTrace(&RawTrace{Events: []RawEvent{failed}})
	require.NoError(t, err)

	assert.Equal(t, models.TraceStatusError, entries[0].Status)
	assert.Equal(t, "timeout", entries[0].Error)
}

func TestExtractTraceRejectsEmptyTrace(t *testing.T) {
	extractor := NewTraceExtractor()

	_, err := extractor.ExtractTrace(nil)
	require.ErrorIs(t, err, ErrTraceParse)

	_, err = extractor.ExtractTrace(&RawTrace{})
	require.ErrorIs(t, err, ErrTraceParse)
}

func TestExtractTraceRejectsMalformedEvents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawEvent)
	}{
		{"missing path", func(e *RawEvent) { e.Path = "" }},
		{"missing instruction", func(e *RawEvent) { e.Instruction = "" }},
		{"zero start time", func(e *RawEvent) { e.StartedAt = time.Time{} }},
		{"finish before start", func(e *RawEvent) { e.FinishedAt = e.StartedAt.Add(-time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validRawEvent(0, "root/a")
			tt.mutate(&event)

			_, err := NewTraceExtractor().ExtractTrace(&RawTrace{Events: []RawEvent{event}})
			require.ErrorIs(t, err, ErrTraceParse)
		})
	}
}

func TestExtractTraceKeepsLoopRepetitions(t *testing.T) {
	raw := &RawTrace{Events: []RawEvent{
		validRawEvent(0, "refine/editor"),
		validRawEvent(1, "refine/editor"),
		validRawEvent(2, "refine/editor"),
	}}

	entries, err := NewTraceExtractor().ExtractTrace(raw)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
