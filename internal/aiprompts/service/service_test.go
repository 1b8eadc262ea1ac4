package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"
)

type fakePromptStore struct {
	rows       map[uuid.UUID]schema.Record
	lastPatch  schema.Record
	clearCalls int
	lastKeepID uuid.UUID
	createErr  error
}

func newFakePromptStore() *fakePromptStore {
	return &fakePromptStore{rows: make(map[uuid.UUID]schema.Record)}
}

func (f *fakePromptStore) Create(_ context.Context, _ uuid.UUID, rec schema.Record) (schema.Record, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := uuid.New()
	stored := schema.Record{"id": id}
	for k, v := range rec {
		stored[k] = v
	}
	f.rows[id] = stored
	return stored, nil
}

func (f *fakePromptStore) Update(_ context.Context, _ uuid.UUID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	f.lastPatch = patch
	row := f.rows[id]
	for k, v := range patch {
		row[k] = v
	}
	return row, nil
}

func (f *fakePromptStore) Get(_ context.Context, _ uuid.UUID, id uuid.UUID) (schema.Record, error) {
	return f.rows[id], nil
}

func (f *fakePromptStore) List(_ context.Context, _ uuid.UUID, _ dispatch.Filters) ([]schema.Record, error) {
	out := make([]schema.Record, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakePromptStore) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakePromptStore) ClearDefaultForContext(_ context.Context, _, keepID uuid.UUID, _, _ *string) error {
	f.clearCalls++
	f.lastKeepID = keepID
	return nil
}

func newTestService(t *testing.T) (*Service, *fakePromptStore) {
	t.Helper()
	log := logger.New("test")
	dispatcher := dispatch.New(schema.NewRegistry(), schema.NewEngine(validator.New()), log)
	store := newFakePromptStore()
	dispatcher.Register(schema.KindAIPrompt, store)
	return New(dispatcher, store, log), store
}

func TestCreateVersionLineage(t *testing.T) {
	svc, _ := newTestService(t)
	tenantID := uuid.New()

	v1, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":        "support answers",
		"prompt_text": "answer politely",
		"temperature": 0.3,
	})
	if err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	if v1.Int("version") != 1 {
		t.Fatalf("initial version = %d, want 1", v1.Int("version"))
	}

	v2, err := svc.CreateVersion(context.Background(), tenantID, *v1.ID("id"), map[string]any{
		"prompt_text": "answer politely and briefly",
	})
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if v2.Int("version") != 2 {
		t.Fatalf("version = %d, want 2", v2.Int("version"))
	}
	if parent := v2.ID("parent_id"); parent == nil || *parent != *v1.ID("id") {
		t.Fatalf("parent_id = %v, want %s", parent, v1.ID("id"))
	}
	if v2.String("prompt_text") != "answer politely and briefly" {
		t.Fatalf("override not applied: %q", v2.String("prompt_text"))
	}
	if v2.Float("temperature") != 0.3 {
		t.Fatalf("temperature not inherited: %g", v2.Float("temperature"))
	}
}

func TestUpdateIgnoresVersionField(t *testing.T) {
	svc, store := newTestService(t)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":        "router",
		"prompt_text": "route the message",
	})
	if err != nil {
		t.Fatalf("create prompt: %v", err)
	}

	updated, err := svc.Update(context.Background(), tenantID, *created.ID("id"), map[string]any{
		"version":     5,
		"prompt_text": "route the message carefully",
	})
	if err != nil {
		t.Fatalf("update prompt: %v", err)
	}
	if store.lastPatch.Has("version") {
		t.Fatalf("version leaked into patch: %v", store.lastPatch)
	}
	if updated.Int("version") != 1 {
		t.Fatalf("version = %d, want unchanged 1", updated.Int("version"))
	}
}

func TestPromoteDefaultClearsSiblings(t *testing.T) {
	svc, store := newTestService(t)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":         "greeter",
		"prompt_text":  "say hello",
		"context_type": "conversation",
	})
	if err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	if store.clearCalls != 0 {
		t.Fatalf("non-default create must not clear, got %d calls", store.clearCalls)
	}

	if _, err := svc.Update(context.Background(), tenantID, *created.ID("id"), map[string]any{
		"is_default": true,
	}); err != nil {
		t.Fatalf("promote default: %v", err)
	}
	if store.clearCalls != 1 {
		t.Fatalf("expected one clear call, got %d", store.clearCalls)
	}
}

func TestDefaultCreateClearsSiblingsAfterInsert(t *testing.T) {
	svc, store := newTestService(t)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":        "closer",
		"prompt_text": "wrap up the conversation",
		"is_default":  true,
	})
	if err != nil {
		t.Fatalf("create default prompt: %v", err)
	}
	if store.clearCalls != 1 {
		t.Fatalf("expected one clear call, got %d", store.clearCalls)
	}
	if store.lastKeepID != *created.ID("id") {
		t.Fatalf("keep id = %s, want the new prompt %s", store.lastKeepID, created.ID("id"))
	}
}

func TestFailedCreateLeavesDefaultsUntouched(t *testing.T) {
	svc, store := newTestService(t)
	store.createErr = errors.New("insert failed")

	if _, err := svc.Create(context.Background(), uuid.New(), map[string]any{
		"name":        "closer",
		"prompt_text": "wrap up the conversation",
		"is_default":  true,
	}); err == nil {
		t.Fatal("create must surface the store error")
	}
	if store.clearCalls != 0 {
		t.Fatalf("failed create must not demote defaults, got %d calls", store.clearCalls)
	}
}

func TestTemperatureBounds(t *testing.T) {
	svc, _ := newTestService(t)
	tenantID := uuid.New()

	if _, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":        "hot",
		"prompt_text": "x",
		"temperature": 2.5,
	}); err == nil {
		t.Fatal("temperature 2.5 must be rejected")
	}

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":        "warm",
		"prompt_text": "x",
		"temperature": 2.0,
	})
	if err != nil {
		t.Fatalf("temperature 2.0 must be accepted: %v", err)
	}
	if created.Float("temperature") != 2.0 {
		t.Fatalf("temperature = %g, want 2", created.Float("temperature"))
	}
}
