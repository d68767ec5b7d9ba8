// Package events carries domain events between modules. Publishers and
// subscribers only share the Event contract; the wiring lives in the
// composition root, so no module imports another to react to its changes.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName identifies the event type; subscribers key on it.
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// BaseEvent supplies the timestamp shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler reacts to a published event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish delivers the event to every handler registered for its name.
	// Delivery is asynchronous; handler errors are logged, not returned.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and waits for every handler,
	// aggregating their errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for events whose EventName matches.
	Subscribe(eventName string, handler Handler)
}
