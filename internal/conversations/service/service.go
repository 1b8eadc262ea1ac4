package service

import (
	"context"

	"github.com/google/uuid"

	"crmhub_backend/internal/conversations/transport"
	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/events"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
)

// Service provides business logic for conversations and their message
// threads on top of the shared mutation pipeline.
type Service struct {
	dispatcher *dispatch.Dispatcher
	bus        events.Bus
	log        *logger.Logger
}

// New creates a new conversations service.
func New(dispatcher *dispatch.Dispatcher, bus events.Bus, log *logger.Logger) *Service {
	return &Service{dispatcher: dispatcher, bus: bus, log: log}
}

// Create validates and persists a new conversation.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, raw map[string]any) (schema.Record, error) {
	rec, err := s.dispatcher.Create(ctx, schema.KindConversation, tenantID, raw)
	if err != nil {
		return nil, err
	}
	s.publishAssignment(ctx, tenantID, rec, nil)
	return rec, nil
}

// Update validates the sparse patch and persists it. When the patch moves
// the assignee, ConversationAssigned is published with the previous agent.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, raw map[string]any) (schema.Record, error) {
	var previous *uuid.UUID
	if _, reassigning := raw["assigned_to"]; reassigning {
		current, err := s.dispatcher.Get(ctx, schema.KindConversation, tenantID, id)
		if err != nil {
			return nil, err
		}
		previous = current.ID("assigned_to")
	}

	rec, err := s.dispatcher.Update(ctx, schema.KindConversation, tenantID, id, raw)
	if err != nil {
		return nil, err
	}

	if _, reassigning := raw["assigned_to"]; reassigning {
		s.publishAssignment(ctx, tenantID, rec, previous)
	}
	return rec, nil
}

// Get retrieves one conversation.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	return s.dispatcher.Get(ctx, schema.KindConversation, tenantID, id)
}

// List retrieves conversations matching the filters.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListConversationsRequest) ([]schema.Record, error) {
	filters := dispatch.Filters{
		"status":      req.Status,
		"channel":     req.Channel,
		"priority":    req.Priority,
		"contact_id":  req.ContactID,
		"assigned_to": req.AssignedTo,
	}
	return s.dispatcher.List(ctx, schema.KindConversation, tenantID, filters)
}

// Delete removes a conversation and its message thread.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.dispatcher.Delete(ctx, schema.KindConversation, tenantID, id)
}

// ToggleAI flips the conversation's ai_assistant_enabled flag through the
// normal update pipeline.
func (s *Service) ToggleAI(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	current, err := s.dispatcher.Get(ctx, schema.KindConversation, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Update(ctx, schema.KindConversation, tenantID, id, map[string]any{
		"ai_assistant_enabled": !current.Bool("ai_assistant_enabled"),
	})
}

// CreateMessage appends a message to the conversation thread. The route's
// conversation ID always wins over whatever the payload carries.
func (s *Service) CreateMessage(ctx context.Context, tenantID, conversationID uuid.UUID, raw map[string]any) (schema.Record, error) {
	raw["conversation_id"] = conversationID.String()
	return s.dispatcher.Create(ctx, schema.KindMessage, tenantID, raw)
}

// ListMessages retrieves the conversation's messages in thread order. The
// conversation itself is loaded first so a missing thread 404s instead of
// returning an empty list.
func (s *Service) ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID, req transport.ListMessagesRequest) ([]schema.Record, error) {
	if _, err := s.dispatcher.Get(ctx, schema.KindConversation, tenantID, conversationID); err != nil {
		return nil, err
	}
	filters := dispatch.Filters{
		"conversation_id": conversationID.String(),
		"sender_type":     req.SenderType,
		"direction":       req.Direction,
	}
	return s.dispatcher.List(ctx, schema.KindMessage, tenantID, filters)
}

func (s *Service) publishAssignment(ctx context.Context, tenantID uuid.UUID, rec schema.Record, previous *uuid.UUID) {
	assignee := rec.ID("assigned_to")
	if assignee == nil {
		return
	}
	id := rec.ID("id")
	if id == nil {
		return
	}
	s.bus.Publish(ctx, events.ConversationAssigned{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: *id,
		TenantID:       tenantID,
		AssignedTo:     *assignee,
		PreviousAgent:  previous,
		Subject:        rec.String("subject"),
	})
}
