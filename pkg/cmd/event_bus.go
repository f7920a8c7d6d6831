// Package cmd holds the shared wiring used by the command-line binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dukex/agentopt/pkg/channels/gochannel"
	"github.com/dukex/agentopt/pkg/eventbus"
	"github.com/dukex/agentopt/pkg/events"
)

func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

// LogEvents registers a logging handler for every optimization lifecycle
// event and starts consuming the bus. Consumption stops when the context is
// cancelled.
func LogEvents(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	handlers := map[events.EventType]eventbus.EventHandler{
		events.OptimizationStartedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.OptimizationStarted); ok {
				logger.InfoContext(ctx, "Optimization started",
					"optimization_id", e.OptimizationID, "agent", e.AgentName, "objective", e.Objective)
			}

			return nil
		},
		events.IterationCompletedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.IterationCompleted); ok {
				logger.InfoContext(ctx, "Iteration completed",
					"optimization_id", e.OptimizationID, "iteration", e.Iteration,
					"score", e.Score, "best_score", e.BestScore, "edits_applied", e.EditsApplied)
			}

			return nil
		},
		events.OptimizationFinishedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.OptimizationFinished); ok {
				logger.InfoContext(ctx, "Optimization finished",
					"optimization_id", e.OptimizationID, "reason", e.TerminationReason,
					"final_score", e.FinalScore, "iterations", e.IterationsRun, "duration", e.Duration)
			}

			return nil
		},
		events.OptimizationFailedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.OptimizationFailed); ok {
				logger.WarnContext(ctx, "Optimization failed",
					"optimization_id", e.OptimizationID, "iteration", e.Iteration, "error", e.Error)
			}

			return nil
		},
	}

	for eventType, handler := range handlers {
		if err := bus.Handle(eventType, handler); err != nil {
			return fmt.Errorf("registering %s handler: %w", eventType, err)
		}
	}

	return bus.Subscribe(ctx)
}
