package schema

import "crmhub_backend/platform/apperr"

var channelValues = []string{"whatsapp", "email", "chat", "phone", "other"}

// Registry holds the create schema for every entity kind. It is built once at
// startup and is read-only afterwards, safe for unsynchronized concurrent use.
type Registry struct {
	schemas map[Kind]Schema
}

// NewRegistry builds the declarative schema tables for all entity kinds.
func NewRegistry() *Registry {
	registry := &Registry{schemas: make(map[Kind]Schema)}
	for _, s := range []Schema{
		contactSchema(),
		conversationSchema(),
		messageSchema(),
		aiPromptSchema(),
		pipelineSchema(),
		pipelineStageSchema(),
		calendarEventSchema(),
		documentSchema(),
		integrationSchema(),
		settingsSchema(),
	} {
		registry.schemas[s.Kind] = s
	}
	return registry
}

// Create returns the create-mode schema for the entity kind.
func (r *Registry) Create(kind Kind) (Schema, bool) {
	s, ok := r.schemas[kind]
	return s, ok
}

// Update returns the update-mode schema, derived from the create schema.
func (r *Registry) Update(kind Kind) (Schema, bool) {
	s, ok := r.schemas[kind]
	if !ok {
		return Schema{}, false
	}
	return s.ForUpdate(), true
}

// Kinds lists every registered entity kind.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.schemas))
	for kind := range r.schemas {
		kinds = append(kinds, kind)
	}
	return kinds
}

func contactSchema() Schema {
	return Schema{
		Kind: KindContact,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "name", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "email", Type: TypeString, Format: "email"},
			{Name: "phone", Type: TypeString},
			{Name: "whatsapp", Type: TypeString},
			{Name: "document", Type: TypeString},
			{Name: "status", Type: TypeString, Default: "lead", Enum: []string{"lead", "prospect", "client", "inactive"}},
			{Name: "source", Type: TypeString, MaxLen: 100},
			{Name: "score", Type: TypeInt, Default: 0, Min: bound(0), Max: bound(100)},
			{Name: "custom_fields", Type: TypeMap, Default: map[string]any{}},
			{Name: "notes", Type: TypeString},
			{Name: "tags", Type: TypeStringList, Default: []string{}},
			{Name: "ai_enabled", Type: TypeBool, Default: true},
			{Name: "pipeline_id", Type: TypeIdentifier},
			{Name: "pipeline_stage_id", Type: TypeIdentifier},
		},
	}
}

func conversationSchema() Schema {
	return Schema{
		Kind: KindConversation,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "contact_id", Type: TypeIdentifier, Required: true},
			{Name: "channel", Type: TypeString, Default: "whatsapp", Enum: channelValues},
			{Name: "channel_thread_id", Type: TypeString},
			{Name: "status", Type: TypeString, Default: "open", Enum: []string{"open", "closed", "transferred", "waiting"}},
			{Name: "priority", Type: TypeString, Default: "normal", Enum: []string{"low", "normal", "high", "urgent"}},
			{Name: "subject", Type: TypeString, MaxLen: 500},
			{Name: "assigned_to", Type: TypeIdentifier},
			{Name: "ai_assistant_enabled", Type: TypeBool, Default: true},
		},
	}
}

func messageSchema() Schema {
	return Schema{
		Kind: KindMessage,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "conversation_id", Type: TypeIdentifier, Required: true, Immutable: true},
			{Name: "contact_id", Type: TypeIdentifier, Required: true},
			{Name: "content", Type: TypeString, Required: true},
			{Name: "content_type", Type: TypeString, Default: "text", Enum: []string{"text", "image", "audio", "video", "document", "location"}},
			{Name: "media_url", Type: TypeString, Format: "url"},
			{Name: "sender_type", Type: TypeString, Required: true, Enum: []string{"human", "ai", "system"}},
			{Name: "direction", Type: TypeString, Required: true, Enum: []string{"inbound", "outbound"}},
			{Name: "status", Type: TypeString, Default: "sent", Enum: []string{"sent", "delivered", "read", "failed"}},
			{Name: "ai_context", Type: TypeMap},
			{Name: "ai_prompt_version_id", Type: TypeIdentifier},
		},
	}
}

func aiPromptSchema() Schema {
	return Schema{
		Kind: KindAIPrompt,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "name", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "description", Type: TypeString},
			// Version lineage is system-managed after creation; the derived
			// update schema drops the field so full-object form edits pass.
			{Name: "version", Type: TypeInt, Default: 1, Min: bound(1), Immutable: true},
			{Name: "parent_id", Type: TypeIdentifier},
			{Name: "prompt_text", Type: TypeString, Required: true},
			{Name: "system_prompt", Type: TypeString},
			{Name: "model", Type: TypeString, Default: "gpt-4o-mini"},
			{Name: "temperature", Type: TypeFloat, Default: 0.7, Min: bound(0), Max: bound(2)},
			{Name: "max_tokens", Type: TypeInt, Default: 1000, Min: bound(1)},
			{Name: "context_type", Type: TypeString, MaxLen: 50},
			{Name: "channel", Type: TypeString, MaxLen: 50},
			{Name: "allowed_actions", Type: TypeStringList, Default: []string{}},
			{Name: "forbidden_actions", Type: TypeStringList, Default: []string{}},
			{Name: "constraints", Type: TypeString},
			{Name: "is_active", Type: TypeBool, Default: true},
			{Name: "is_default", Type: TypeBool, Default: false},
		},
	}
}

func pipelineSchema() Schema {
	return Schema{
		Kind: KindPipeline,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "name", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "color", Type: TypeString, MaxLen: 20},
			{Name: "is_default", Type: TypeBool, Default: false},
		},
	}
}

func pipelineStageSchema() Schema {
	return Schema{
		Kind: KindPipelineStage,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "pipeline_id", Type: TypeIdentifier, Required: true, Immutable: true},
			{Name: "name", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "color", Type: TypeString, MaxLen: 20},
			{Name: "display_order", Type: TypeInt, Default: 0, Min: bound(0)},
		},
	}
}

func calendarEventSchema() Schema {
	return Schema{
		Kind: KindCalendarEvent,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "title", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "description", Type: TypeString},
			{Name: "starts_at", Type: TypeTime, Required: true},
			{Name: "ends_at", Type: TypeTime, Required: true},
			{Name: "all_day", Type: TypeBool, Default: false},
			{Name: "location", Type: TypeString, MaxLen: 255},
			{Name: "contact_id", Type: TypeIdentifier},
			{Name: "reminder_minutes", Type: TypeInt, Default: 30, Min: bound(0)},
		},
		Checks: []CrossCheck{checkEventWindow},
	}
}

func checkEventWindow(rec Record) *apperr.FieldError {
	if !rec.Has("starts_at") || !rec.Has("ends_at") {
		return nil
	}
	if !rec.Time("ends_at").After(rec.Time("starts_at")) {
		return &apperr.FieldError{Field: "ends_at", Message: "must be after starts_at"}
	}
	return nil
}

func documentSchema() Schema {
	return Schema{
		Kind: KindDocument,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "title", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "content", Type: TypeString},
			{Name: "category", Type: TypeString, MaxLen: 100},
			{Name: "tags", Type: TypeStringList, Default: []string{}},
			{Name: "is_published", Type: TypeBool, Default: false},
		},
	}
}

func integrationSchema() Schema {
	return Schema{
		Kind: KindIntegration,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "channel", Type: TypeString, Required: true, Enum: channelValues},
			{Name: "name", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "webhook_url", Type: TypeString, Format: "url"},
			{Name: "secret", Type: TypeString},
			{Name: "is_active", Type: TypeBool, Default: true},
		},
	}
}

func settingsSchema() Schema {
	return Schema{
		Kind: KindSettings,
		Mode: ModeCreate,
		Fields: []Field{
			{Name: "company_name", Type: TypeString, MaxLen: 255},
			{Name: "timezone", Type: TypeString, Default: "UTC", MaxLen: 64},
			{Name: "default_pipeline_id", Type: TypeIdentifier},
			{Name: "ai_enabled", Type: TypeBool, Default: true},
		},
	}
}
