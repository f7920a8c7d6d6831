// Package events defines event types and structures for optimization
// lifecycle notifications.
package events

import (
	"time"

	"github.com/dukex/agentopt/pkg/models"
)

type EventType string

const Topic = "agentopt.optimizations"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	OptimizationStartedEvent  EventType = "optimization.started"
	IterationCompletedEvent   EventType = "optimization.iteration.completed"
	OptimizationFinishedEvent EventType = "optimization.finished"
	OptimizationFailedEvent   EventType = "optimization.failed"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	OptimizationID string         `json:"optimization_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type OptimizationStarted struct {
	BaseEvent

	AgentName     string           `json:"agent_name"`
	Objective     models.Objective `json:"objective"`
	MaxIterations int              `json:"max_iterations"`
}

func (e OptimizationStarted) GetType() EventType {
	return OptimizationStartedEvent
}

type IterationCompleted struct {
	BaseEvent

	Iteration    int     `json:"iteration"`
	Score        float64 `json:"score"`
	BestScore    float64 `json:"best_score"`
	EditsApplied int     `json:"edits_applied"`
}

func (e IterationCompleted) GetType() EventType {
	return IterationCompletedEvent
}

type OptimizationFinished struct {
	BaseEvent

	TerminationReason models.TerminationReason `json:"termination_reason"`
	FinalScore        float64                  `json:"final_score"`
	IterationsRun     int                      `json:"iterations_run"`
	Duration          time.Duration            `json:"duration"`
}

func (e OptimizationFinished) GetType() EventType {
	return OptimizationFinishedEvent
}

type OptimizationFailed struct {
	BaseEvent

	Error     string        `json:"error"`
	Iteration int           `json:"iteration"`
	Duration  time.Duration `json:"duration"`
}

func (e OptimizationFailed) GetType() EventType {
	return OptimizationFailedEvent
}
