package events

import (
	"context"
	"sync"

	"crmhub_backend/platform/logger"
)

// InMemoryBus is a process-local Bus implementation. Subscriptions happen at
// startup; Publish fans out to each handler in its own goroutine so a slow
// listener never blocks the publishing request.
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

// Subscribe registers a handler for the named event.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish delivers the event to all handlers asynchronously.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	for _, handler := range b.handlersFor(event.EventName()) {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panic", "event", event.EventName(), "panic", r)
				}
			}()
			if err := h.Handle(context.WithoutCancel(ctx), event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(handler)
	}
}

// PublishSync delivers the event to all handlers in order, returning the first error.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	for _, handler := range b.handlersFor(event.EventName()) {
		if err := handler.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	registered := b.handlers[eventName]
	out := make([]Handler, len(registered))
	copy(out, registered)
	return out
}

var _ Bus = (*InMemoryBus)(nil)
