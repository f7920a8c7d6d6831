package workflow

import (
	"fmt"
	"sort"

	"github.com/dukex/agentopt/pkg/models"
)

// TraceExtractor normalizes raw execution traces into per-leaf entries.
type TraceExtractor struct{}

// NewTraceExtractor creates a trace extractor.
func NewTraceExtractor() *TraceExtractor {
	return &TraceExtractor{}
}

// ExtractTrace returns one TraceEntry per leaf invocation in recorded
// sequence order. Loop iterations produce repeated entries for the same
// path; parallel siblings appear in the order they were recorded, which is
// stable metadata but carries no scoring meaning. A malformed trace is an
// integration defect and fails with ErrTraceParse.
func (x *TraceExtractor) ExtractTrace(raw *RawTrace) ([]models.TraceEntry, error) {
	if raw == nil || len(raw.Events) == 0 {
		return nil, fmt.Errorf("%w: no events recorded", ErrTraceParse)
	}

	events := make([]RawEvent, len(raw.Events))
	copy(events, raw.Events)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Seq < events[j].Seq
	})

	entries := make([]models.TraceEntry, 0, len(events))

	for i, event := range events {
		if event.Path == "" {
			return nil, fmt.Errorf("%w: event %d has no node path", ErrTraceParse, i)
		}

		if event.Instruction == "" {
			return nil, fmt.Errorf("%w: event %d at %s has no instruction snapshot", ErrTraceParse, i, event.Path)
		}

		if event.StartedAt.IsZero() || event.FinishedAt.Before(event.StartedAt) {
			return nil, fmt.Errorf("%w: event %d at %s has invalid timestamps", ErrTraceParse, i, event.Path)
		}

		entry := models.TraceEntry{
			Path:        event.Path,
			Instruction: event.Instruction,
			Input:       event.Input,
			Output:      event.Output,
			StartedAt:   event.StartedAt,
			FinishedAt:  event.FinishedAt,
			Status:      models.TraceStatusOK,
		}

		if event.Err != "" {
			entry.Status = models.TraceStatusError
			entry.Error = event.Err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
