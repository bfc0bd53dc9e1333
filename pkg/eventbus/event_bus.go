// Package eventbus carries contribution and plugin catalog notifications between
// services over watermill topics.
package eventbus

import (
	"context"

	"github.com/sudao/sudao/pkg/events"
)

// Event is any notification from the events package.
type Event = events.Event

// EventPublisher publishes events keyed by run ID or plugin ID so that one key keeps
// its order on partitioned transports.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a decoded pointer, e.g. *events.ContributionCompleted.
type EventHandler func(ctx context.Context, event Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
