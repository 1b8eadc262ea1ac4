// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	platformevents "crmhub_backend/platform/events"
	"crmhub_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = platformevents.Event
	Bus         = platformevents.Bus
	Handler     = platformevents.Handler
	HandlerFunc = platformevents.HandlerFunc
	BaseEvent   = platformevents.BaseEvent
	InMemoryBus = platformevents.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = platformevents.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

// =============================================================================
// Contact Domain Events
// =============================================================================

// ContactCreated is published when a new contact is persisted.
type ContactCreated struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	TenantID  uuid.UUID `json:"tenantId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
}

func (e ContactCreated) EventName() string { return "contacts.created" }

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationAssigned is published when a conversation gains an assignee.
type ConversationAssigned struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	TenantID       uuid.UUID  `json:"tenantId"`
	AssignedTo     uuid.UUID  `json:"assignedTo"`
	PreviousAgent  *uuid.UUID `json:"previousAgent,omitempty"`
	Subject        string     `json:"subject,omitempty"`
}

func (e ConversationAssigned) EventName() string { return "conversations.assigned" }
