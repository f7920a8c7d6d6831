// Package eventbus publishes and consumes optimization lifecycle events.
package eventbus

import (
	"context"

	"github.com/dukex/agentopt/pkg/events"
)

// Event is any payload that can ride the bus; implementations live in
// pkg/events.
type Event interface {
	GetType() events.EventType
}

// EventPublisher emits events keyed by the optimization run they belong to.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber registers handlers per event type and then pumps events
// until the context is cancelled.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event interface{}) error

// EventBus is the full publish/subscribe surface used by the optimizer and
// any listeners.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
