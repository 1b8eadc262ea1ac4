// Package notifications turns domain events into agent-facing emails.
package notifications

import (
	"context"

	"github.com/google/uuid"

	"crmhub_backend/internal/events"
	"crmhub_backend/platform/logger"
)

// AgentDirectory resolves agent user IDs to contact details.
type AgentDirectory interface {
	UserEmail(ctx context.Context, userID uuid.UUID) (email, name string, err error)
}

// Subscriber listens for domain events and sends notification emails.
type Subscriber struct {
	sender    Sender
	directory AgentDirectory
	log       *logger.Logger
}

// NewSubscriber creates the notifications subscriber and registers it on the
// bus.
func NewSubscriber(bus events.Bus, sender Sender, directory AgentDirectory, log *logger.Logger) *Subscriber {
	s := &Subscriber{sender: sender, directory: directory, log: log}
	bus.Subscribe(events.ConversationAssigned{}.EventName(), events.HandlerFunc(s.onConversationAssigned))
	return s
}

func (s *Subscriber) onConversationAssigned(ctx context.Context, event events.Event) error {
	assigned, ok := event.(events.ConversationAssigned)
	if !ok {
		return nil
	}

	email, name, err := s.directory.UserEmail(ctx, assigned.AssignedTo)
	if err != nil {
		s.log.Warn("assignment notification skipped, assignee not resolvable",
			"conversation_id", assigned.ConversationID.String())
		return nil
	}

	subject := assigned.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return s.sender.SendAssignmentEmail(ctx, email, name, subject)
}
