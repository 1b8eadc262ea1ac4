// Package events carries domain events between modules over an in-process
// bus. This is part of the platform layer and contains no business logic;
// concrete event types live with the modules that publish them.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event a module publishes.
type Event interface {
	// EventName uniquely identifies the event type, e.g. "contacts.created".
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// Bus routes published events to the handlers subscribed to their name.
type Bus interface {
	// Publish delivers the event to every subscribed handler. Delivery is
	// asynchronous; the publisher never waits on listeners.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and waits for every handler, returning
	// the first handler error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the name the event reports from
	// EventName(). Subscriptions happen at startup, before publishing begins.
	Subscribe(eventName string, handler Handler)
}

// Handler consumes events of one subscribed type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle invokes the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// BaseEvent supplies the occurrence timestamp shared by every concrete event.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt reports when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}
