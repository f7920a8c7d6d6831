package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/agentopt/pkg/channels/gochannel"
	"github.com/dukex/agentopt/pkg/eventbus"
	"github.com/dukex/agentopt/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func baseEvent(bus eventbus.EventBus, eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:             bus.GenerateID(),
		Type:           eventType,
		Timestamp:      time.Now(),
		OptimizationID: "opt-1",
	}
}

func TestPublishDeliversToRegisteredHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.IterationCompleted, 1)

	require.NoError(t, bus.Handle(events.IterationCompletedEvent, func(ctx context.Context, event any) error {
		if e, ok := event.(*events.IterationCompleted); ok {
			received <- e
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "opt-1", events.IterationCompleted{
		BaseEvent:    baseEvent(bus, events.IterationCompletedEvent),
		Iteration:    2,
		Score:        0.42,
		BestScore:    0.5,
		EditsApplied: 1,
	}))

	select {
	case e := <-received:
		assert.Equal(t, "opt-1", e.OptimizationID)
		assert.Equal(t, 2, e.Iteration)
		assert.InDelta(t, 0.42, e.Score, 1e-9)
		assert.Equal(t, 1, e.EditsApplied)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventsWithoutHandlerDoNotBlockHandledOnes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.OptimizationFinished, 1)

	require.NoError(t, bus.Handle(events.OptimizationFinishedEvent, func(ctx context.Context, event any) error {
		if e, ok := event.(*events.OptimizationFinished); ok {
			received <- e
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "opt-1", events.OptimizationStarted{
		BaseEvent: baseEvent(bus, events.OptimizationStartedEvent),
		AgentName: "pipeline",
	}))

	require.NoError(t, bus.Publish(ctx, "opt-1", events.OptimizationFinished{
		BaseEvent:  baseEvent(bus, events.OptimizationFinishedEvent),
		FinalScore: 0.93,
	}))

	select {
	case e := <-received:
		assert.InDelta(t, 0.93, e.FinalScore, 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestGenerateIDIsUnique(t *testing.T) {
	bus := newTestBus(t)

	a := bus.GenerateID()
	b := bus.GenerateID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
