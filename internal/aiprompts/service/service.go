package service

import (
	"context"

	"github.com/google/uuid"

	"crmhub_backend/internal/aiprompts/transport"
	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
)

// DefaultClearer demotes existing default prompts so a newly promoted one
// stays the single default for its context/channel pair. keepID names the
// promoted prompt, which must survive the sweep.
type DefaultClearer interface {
	ClearDefaultForContext(ctx context.Context, tenantID, keepID uuid.UUID, contextType, channel *string) error
}

// Service provides business logic for AI prompt configuration records,
// including immutable version lineage.
type Service struct {
	dispatcher *dispatch.Dispatcher
	defaults   DefaultClearer
	log        *logger.Logger
}

// New creates a new AI prompts service.
func New(dispatcher *dispatch.Dispatcher, defaults DefaultClearer, log *logger.Logger) *Service {
	return &Service{dispatcher: dispatcher, defaults: defaults, log: log}
}

// Create validates and persists a new prompt at version 1. When the new
// prompt is flagged as default, sibling defaults are demoted only after the
// insert succeeds, so a failed insert leaves the existing default in place.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, raw map[string]any) (schema.Record, error) {
	rec, err := s.dispatcher.Create(ctx, schema.KindAIPrompt, tenantID, raw)
	if err != nil {
		return nil, err
	}
	if rec.Bool("is_default") {
		if err := s.clearSiblingDefaults(ctx, tenantID, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Update validates the sparse patch and persists it. Version and parent
// lineage are system-managed, so caller-supplied values are ignored.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, raw map[string]any) (schema.Record, error) {
	patch, err := s.dispatcher.PrepareUpdate(schema.KindAIPrompt, raw)
	if err != nil {
		return nil, err
	}
	rec, err := s.dispatcher.Update(ctx, schema.KindAIPrompt, tenantID, id, raw)
	if err != nil {
		return nil, err
	}
	if patch.Bool("is_default") {
		if err := s.clearSiblingDefaults(ctx, tenantID, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// clearSiblingDefaults demotes other default prompts in the stored record's
// context/channel pair, keeping the record itself as the sole default.
func (s *Service) clearSiblingDefaults(ctx context.Context, tenantID uuid.UUID, rec schema.Record) error {
	keepID := rec.ID("id")
	if keepID == nil {
		return nil
	}
	return s.defaults.ClearDefaultForContext(ctx, tenantID, *keepID, rec.StringPtr("context_type"), rec.StringPtr("channel"))
}

// Get retrieves one prompt version.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	return s.dispatcher.Get(ctx, schema.KindAIPrompt, tenantID, id)
}

// List retrieves prompts matching the filters.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListPromptsRequest) ([]schema.Record, error) {
	filters := dispatch.Filters{
		"context_type": req.ContextType,
		"channel":      req.Channel,
		"active":       req.Active,
		"parent_id":    req.ParentID,
	}
	return s.dispatcher.List(ctx, schema.KindAIPrompt, tenantID, filters)
}

// Delete removes a prompt version.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.dispatcher.Delete(ctx, schema.KindAIPrompt, tenantID, id)
}

// ToggleActive flips the prompt's is_active flag through the normal update
// pipeline.
func (s *Service) ToggleActive(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	current, err := s.dispatcher.Get(ctx, schema.KindAIPrompt, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Update(ctx, schema.KindAIPrompt, tenantID, id, map[string]any{
		"is_active": !current.Bool("is_active"),
	})
}

// Editable prompt fields a new version inherits from its source.
var versionedFields = []string{
	"name", "description", "prompt_text", "system_prompt", "model", "temperature",
	"max_tokens", "context_type", "channel", "allowed_actions", "forbidden_actions",
	"constraints", "is_active", "is_default",
}

// CreateVersion creates the next version of an existing prompt. Fields absent
// from the override payload are inherited from the source version; the version
// number and parent link are always derived from the source, never from the
// caller.
func (s *Service) CreateVersion(ctx context.Context, tenantID, sourceID uuid.UUID, overrides map[string]any) (schema.Record, error) {
	source, err := s.dispatcher.Get(ctx, schema.KindAIPrompt, tenantID, sourceID)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]any, len(versionedFields)+2)
	for _, field := range versionedFields {
		if value := source[field]; value != nil {
			raw[field] = value
		}
	}
	for field, value := range overrides {
		raw[field] = value
	}
	raw["version"] = source.Int("version") + 1
	raw["parent_id"] = sourceID.String()

	return s.Create(ctx, tenantID, raw)
}
