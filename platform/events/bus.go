// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
package events

import (
	"context"
	"sync"

	"trainhub_backend/platform/logger"

	"go.uber.org/multierr"
)

// InMemoryBus is a simple in-process event bus. Handlers registered for an
// event name receive every published event of that name. Publish runs handlers
// on a separate goroutine; a handler failure is logged but never propagated to
// the publisher, because the state transition that produced the event has
// already committed.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish delivers the event to all handlers asynchronously.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.handlersFor(event.EventName())
	if len(handlers) == 0 {
		return
	}

	go func() {
		// Detach from the request context: the publisher must not be able to
		// cancel handlers for an already-committed transition.
		for _, h := range handlers {
			if err := h.Handle(context.Background(), event); err != nil && b.log != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err,
				)
			}
		}
	}()
}

// PublishSync delivers the event to all handlers and waits for completion.
// All handlers run even when an earlier one fails; errors are combined.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var combined error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

func (b *InMemoryBus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	return handlers
}
