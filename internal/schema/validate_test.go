package schema

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"crmhub_backend/platform/validator"
)

func newTestEngine() *Engine {
	return NewEngine(validator.New())
}

func createSchema(t *testing.T, kind Kind) Schema {
	t.Helper()
	s, ok := NewRegistry().Create(kind)
	if !ok {
		t.Fatalf("no create schema registered for kind %q", kind)
	}
	return s
}

func updateSchema(t *testing.T, kind Kind) Schema {
	t.Helper()
	s, ok := NewRegistry().Update(kind)
	if !ok {
		t.Fatalf("no update schema registered for kind %q", kind)
	}
	return s
}

func TestCreateAppliesDefaults(t *testing.T) {
	engine := newTestEngine()

	rec, errs := engine.Validate(createSchema(t, KindContact), map[string]any{"name": "Ana"})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}

	if rec.String("status") != "lead" {
		t.Errorf("status = %q, want lead", rec.String("status"))
	}
	if rec.Int("score") != 0 {
		t.Errorf("score = %d, want 0", rec.Int("score"))
	}
	if !rec.Bool("ai_enabled") {
		t.Error("ai_enabled default should be true")
	}
	if tags := rec.Strings("tags"); tags == nil || len(tags) != 0 {
		t.Errorf("tags = %v, want empty list", tags)
	}
	if fields := rec.Map("custom_fields"); fields == nil || len(fields) != 0 {
		t.Errorf("custom_fields = %v, want empty mapping", fields)
	}
	// Optional fields without defaults stay absent, not null.
	if rec.Has("email") {
		t.Error("email should be absent when not supplied")
	}
}

func TestCreateMissingRequiredField(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindContact), map[string]any{"email": "ana@example.com"})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one field error, got %v", errs)
	}
	if errs[0].Field != "name" || errs[0].Message != "is required" {
		t.Fatalf("unexpected error %+v", errs[0])
	}
}

func TestCreateCollectsAllFieldErrors(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindMessage), map[string]any{
		"content":     "hi",
		"sender_type": "robot",
	})

	fields := make(map[string]bool, len(errs))
	for _, fe := range errs {
		fields[fe.Field] = true
	}
	for _, want := range []string{"conversation_id", "contact_id", "direction", "sender_type"} {
		if !fields[want] {
			t.Errorf("missing field error for %q in %v", want, errs)
		}
	}
}

func TestUpdateIsSparse(t *testing.T) {
	engine := newTestEngine()

	patch, errs := engine.Validate(updateSchema(t, KindConversation), map[string]any{"status": "closed"})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if len(patch) != 1 {
		t.Fatalf("patch = %v, want exactly the supplied field", patch)
	}
	if patch.String("status") != "closed" {
		t.Fatalf("status = %q, want closed", patch.String("status"))
	}
}

func TestUpdateRejectsClearingRequiredField(t *testing.T) {
	engine := newTestEngine()

	// Omitting a create-required field is a valid sparse update; supplying it
	// empty or null is not, since the store column can never hold that.
	_, errs := engine.Validate(updateSchema(t, KindContact), map[string]any{"name": ""})
	if len(errs) != 1 || errs[0].Field != "name" || errs[0].Message != "must not be empty" {
		t.Fatalf("empty name must be rejected, got %v", errs)
	}

	_, errs = engine.Validate(updateSchema(t, KindContact), map[string]any{"name": nil})
	if len(errs) != 1 || errs[0].Field != "name" {
		t.Fatalf("null name must be rejected, got %v", errs)
	}

	_, errs = engine.Validate(updateSchema(t, KindConversation), map[string]any{"contact_id": ""})
	if len(errs) != 1 || errs[0].Field != "contact_id" {
		t.Fatalf("clearing a required identifier must be rejected, got %v", errs)
	}

	// Optional fields still accept an explicit clear.
	patch, errs := engine.Validate(updateSchema(t, KindContact), map[string]any{"notes": nil})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if !patch.Has("notes") || patch["notes"] != nil {
		t.Fatalf("optional clear lost from patch: %v", patch)
	}
}

func TestUpdateDropsImmutableFields(t *testing.T) {
	engine := newTestEngine()

	// Full-object form edits routinely echo system-managed fields back.
	patch, errs := engine.Validate(updateSchema(t, KindAIPrompt), map[string]any{
		"version":     5,
		"prompt_text": "revised",
	})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if patch.Has("version") {
		t.Fatal("version must be ignored in update mode")
	}
	if patch.String("prompt_text") != "revised" {
		t.Fatalf("prompt_text = %q, want revised", patch.String("prompt_text"))
	}
}

func TestOptionalIdentifierEmptyStringClearsField(t *testing.T) {
	engine := newTestEngine()

	patch, errs := engine.Validate(updateSchema(t, KindContact), map[string]any{"pipeline_id": ""})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if !patch.Has("pipeline_id") {
		t.Fatal("explicit clear must be present in the patch")
	}
	if patch["pipeline_id"] != nil {
		t.Fatalf("pipeline_id = %v, want null", patch["pipeline_id"])
	}
}

func TestRequiredIdentifierRejectsEmptyString(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindConversation), map[string]any{"contact_id": ""})
	if len(errs) != 1 || errs[0].Field != "contact_id" {
		t.Fatalf("expected contact_id error, got %v", errs)
	}
}

func TestIdentifierNormalizesToUUID(t *testing.T) {
	engine := newTestEngine()
	contactID := uuid.New()

	rec, errs := engine.Validate(createSchema(t, KindConversation), map[string]any{
		"contact_id": contactID.String(),
	})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if got := rec.ID("contact_id"); got == nil || *got != contactID {
		t.Fatalf("contact_id = %v, want %s", got, contactID)
	}
}

func TestEnumRejectsUnknownValue(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindContact), map[string]any{
		"name":   "Ana",
		"status": "vip",
	})
	if len(errs) != 1 || errs[0].Field != "status" {
		t.Fatalf("expected status enum error, got %v", errs)
	}
	if !strings.Contains(errs[0].Message, "lead") {
		t.Fatalf("enum error should list allowed values, got %q", errs[0].Message)
	}
}

func TestMaxLenCountsRunes(t *testing.T) {
	engine := newTestEngine()

	// 255 multibyte runes are within bounds even though the byte count is not.
	rec, errs := engine.Validate(createSchema(t, KindContact), map[string]any{
		"name": strings.Repeat("ü", 255),
	})
	if errs != nil {
		t.Fatalf("255 runes should pass: %v", errs)
	}
	if rec.String("name") == "" {
		t.Fatal("name lost during normalization")
	}

	_, errs = engine.Validate(createSchema(t, KindContact), map[string]any{
		"name": strings.Repeat("ü", 256),
	})
	if len(errs) != 1 || errs[0].Field != "name" {
		t.Fatalf("256 runes should fail, got %v", errs)
	}
}

func TestNumericBoundsRejectNotClamp(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindContact), map[string]any{
		"name":  "Ana",
		"score": 101,
	})
	if len(errs) != 1 || errs[0].Field != "score" {
		t.Fatalf("expected score bound error, got %v", errs)
	}

	rec, errs := engine.Validate(createSchema(t, KindContact), map[string]any{
		"name":  "Ana",
		"score": 100,
	})
	if errs != nil {
		t.Fatalf("inclusive upper bound should pass: %v", errs)
	}
	if rec.Int("score") != 100 {
		t.Fatalf("score = %d, want 100", rec.Int("score"))
	}
}

func TestFloatBounds(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindAIPrompt), map[string]any{
		"name":        "hot",
		"prompt_text": "x",
		"temperature": 2.5,
	})
	if len(errs) != 1 || errs[0].Field != "temperature" {
		t.Fatalf("temperature 2.5 must be rejected, got %v", errs)
	}

	rec, errs := engine.Validate(createSchema(t, KindAIPrompt), map[string]any{
		"name":        "warm",
		"prompt_text": "x",
		"temperature": 2.0,
	})
	if errs != nil {
		t.Fatalf("inclusive bound 2.0 must pass: %v", errs)
	}
	if rec.Float("temperature") != 2.0 {
		t.Fatalf("temperature = %g, want 2", rec.Float("temperature"))
	}
}

func TestIntCoercion(t *testing.T) {
	engine := newTestEngine()

	// JSON numbers arrive as float64.
	rec, errs := engine.Validate(createSchema(t, KindContact), map[string]any{
		"name":  "Ana",
		"score": float64(42),
	})
	if errs != nil {
		t.Fatalf("whole JSON number should coerce: %v", errs)
	}
	if rec.Int("score") != 42 {
		t.Fatalf("score = %d, want 42", rec.Int("score"))
	}

	_, errs = engine.Validate(createSchema(t, KindContact), map[string]any{
		"name":  "Ana",
		"score": 41.5,
	})
	if len(errs) != 1 || errs[0].Field != "score" {
		t.Fatalf("fractional number must not coerce to int, got %v", errs)
	}
}

func TestEmailFormat(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindContact), map[string]any{
		"name":  "Ana",
		"email": "not-an-address",
	})
	if len(errs) != 1 || errs[0].Field != "email" {
		t.Fatalf("expected email format error, got %v", errs)
	}
}

func TestTimeParsesRFC3339(t *testing.T) {
	engine := newTestEngine()

	rec, errs := engine.Validate(createSchema(t, KindCalendarEvent), map[string]any{
		"title":     "kickoff",
		"starts_at": "2026-03-01T10:00:00Z",
		"ends_at":   "2026-03-01T11:00:00Z",
	})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !rec.Time("starts_at").Equal(want) {
		t.Fatalf("starts_at = %v, want %v", rec.Time("starts_at"), want)
	}

	_, errs = engine.Validate(createSchema(t, KindCalendarEvent), map[string]any{
		"title":     "kickoff",
		"starts_at": "01-03-2026 10:00",
		"ends_at":   "2026-03-01T11:00:00Z",
	})
	if len(errs) != 1 || errs[0].Field != "starts_at" {
		t.Fatalf("expected timestamp format error, got %v", errs)
	}
}

func TestEventWindowCrossCheck(t *testing.T) {
	engine := newTestEngine()

	_, errs := engine.Validate(createSchema(t, KindCalendarEvent), map[string]any{
		"title":     "kickoff",
		"starts_at": "2026-03-01T11:00:00Z",
		"ends_at":   "2026-03-01T11:00:00Z",
	})
	if len(errs) != 1 || errs[0].Field != "ends_at" {
		t.Fatalf("expected window error, got %v", errs)
	}
}

func TestEventWindowCheckSkippedOnSparsePatch(t *testing.T) {
	engine := newTestEngine()

	// A patch touching only one side of the window cannot be checked here;
	// the service layer re-checks against the stored row.
	patch, errs := engine.Validate(updateSchema(t, KindCalendarEvent), map[string]any{
		"ends_at": "2026-03-01T09:00:00Z",
	})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if !patch.Has("ends_at") {
		t.Fatal("ends_at lost from patch")
	}
}

func TestUnknownKeysIgnored(t *testing.T) {
	engine := newTestEngine()

	rec, errs := engine.Validate(createSchema(t, KindPipeline), map[string]any{
		"name":      "Sales",
		"__proto__": "x",
		"tenant_id": uuid.NewString(),
	})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if rec.Has("__proto__") || rec.Has("tenant_id") {
		t.Fatalf("unknown keys leaked into record: %v", rec)
	}
}

func TestDefaultsAreCopied(t *testing.T) {
	engine := newTestEngine()
	s := createSchema(t, KindContact)

	first, errs := engine.Validate(s, map[string]any{"name": "Ana"})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	first.Map("custom_fields")["k"] = "v"
	tags := first.Strings("tags")
	_ = append(tags, "mutated")

	second, errs := engine.Validate(s, map[string]any{"name": "Bea"})
	if errs != nil {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if len(second.Map("custom_fields")) != 0 {
		t.Fatal("default mapping shared between records")
	}
	if len(second.Strings("tags")) != 0 {
		t.Fatal("default list shared between records")
	}
}
