package service

import (
	"context"

	"github.com/google/uuid"

	"crmhub_backend/internal/contacts/transport"
	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/events"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/phone"
)

// Service provides business logic for contacts on top of the shared
// mutation pipeline.
type Service struct {
	dispatcher *dispatch.Dispatcher
	bus        events.Bus
	log        *logger.Logger
}

// New creates a new contacts service.
func New(dispatcher *dispatch.Dispatcher, bus events.Bus, log *logger.Logger) *Service {
	return &Service{dispatcher: dispatcher, bus: bus, log: log}
}

// Create validates and persists a new contact. Phone-shaped fields are
// normalized to E.164 before validation so equivalent notations dedupe.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, raw map[string]any) (schema.Record, error) {
	normalizePhones(raw)

	rec, err := s.dispatcher.Create(ctx, schema.KindContact, tenantID, raw)
	if err != nil {
		return nil, err
	}

	if id := rec.ID("id"); id != nil {
		s.bus.Publish(ctx, events.ContactCreated{
			BaseEvent: events.NewBaseEvent(),
			ContactID: *id,
			TenantID:  tenantID,
			Name:      rec.String("name"),
			Status:    rec.String("status"),
		})
	}
	return rec, nil
}

// Update validates the sparse patch and persists it.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, raw map[string]any) (schema.Record, error) {
	normalizePhones(raw)
	return s.dispatcher.Update(ctx, schema.KindContact, tenantID, id, raw)
}

// Get retrieves one contact.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	return s.dispatcher.Get(ctx, schema.KindContact, tenantID, id)
}

// List retrieves contacts matching the filters.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListContactsRequest) ([]schema.Record, error) {
	filters := dispatch.Filters{
		"status":      req.Status,
		"pipeline_id": req.PipelineID,
		"search":      req.Search,
		"tag":         req.Tag,
	}
	return s.dispatcher.List(ctx, schema.KindContact, tenantID, filters)
}

// Delete removes a contact.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.dispatcher.Delete(ctx, schema.KindContact, tenantID, id)
}

// ToggleAI flips the contact's ai_enabled flag through the normal update
// pipeline so the mutation contract stays the single write path.
func (s *Service) ToggleAI(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	current, err := s.dispatcher.Get(ctx, schema.KindContact, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Update(ctx, schema.KindContact, tenantID, id, map[string]any{
		"ai_enabled": !current.Bool("ai_enabled"),
	})
}

func normalizePhones(raw map[string]any) {
	for _, field := range []string{"phone", "whatsapp"} {
		if value, ok := raw[field].(string); ok && value != "" {
			raw[field] = phone.NormalizeE164(value)
		}
	}
}
