package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/events"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"
)

type fakeStore struct {
	rows      map[uuid.UUID]schema.Record
	lastRec   schema.Record
	lastPatch schema.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]schema.Record)}
}

func (f *fakeStore) Create(_ context.Context, _ uuid.UUID, rec schema.Record) (schema.Record, error) {
	f.lastRec = rec
	id := uuid.New()
	stored := schema.Record{"id": id}
	for k, v := range rec {
		stored[k] = v
	}
	f.rows[id] = stored
	return stored, nil
}

func (f *fakeStore) Update(_ context.Context, _ uuid.UUID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	f.lastPatch = patch
	row := f.rows[id]
	for k, v := range patch {
		row[k] = v
	}
	return row, nil
}

func (f *fakeStore) Get(_ context.Context, _ uuid.UUID, id uuid.UUID) (schema.Record, error) {
	return f.rows[id], nil
}

func (f *fakeStore) List(_ context.Context, _ uuid.UUID, _ dispatch.Filters) ([]schema.Record, error) {
	return nil, nil
}

func (f *fakeStore) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(t *testing.T) (*Service, *fakeStore, *recordingBus) {
	t.Helper()
	log := logger.New("test")
	dispatcher := dispatch.New(schema.NewRegistry(), schema.NewEngine(validator.New()), log)
	store := newFakeStore()
	dispatcher.Register(schema.KindContact, store)
	bus := &recordingBus{}
	return New(dispatcher, bus, log), store, bus
}

func TestCreateNormalizesPhonesAndPublishes(t *testing.T) {
	svc, store, bus := newTestService(t)
	tenantID := uuid.New()

	rec, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":     "Ana",
		"phone":    "(415) 555-2671",
		"whatsapp": "+55 11 91234-5678",
	})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}

	if got := store.lastRec.String("phone"); got != "+14155552671" {
		t.Errorf("phone = %q, want E.164", got)
	}
	if got := store.lastRec.String("whatsapp"); got != "+5511912345678" {
		t.Errorf("whatsapp = %q, want E.164", got)
	}
	if rec.String("status") != "lead" {
		t.Errorf("status = %q, want defaulted lead", rec.String("status"))
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	created, ok := bus.published[0].(events.ContactCreated)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.published[0])
	}
	if created.TenantID != tenantID || created.Name != "Ana" {
		t.Fatalf("unexpected event %+v", created)
	}
}

func TestStageMoveIsSparsePatch(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenantID := uuid.New()
	stageID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":  "Ana",
		"score": 40,
	})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}

	moved, err := svc.Update(context.Background(), tenantID, *created.ID("id"), map[string]any{
		"pipeline_stage_id": stageID.String(),
	})
	if err != nil {
		t.Fatalf("move contact: %v", err)
	}

	if len(store.lastPatch) != 1 {
		t.Fatalf("stage move must patch one field, got %v", store.lastPatch)
	}
	if got := moved.ID("pipeline_stage_id"); got == nil || *got != stageID {
		t.Fatalf("pipeline_stage_id = %v, want %s", got, stageID)
	}
	if moved.Int("score") != 40 {
		t.Fatalf("score lost across stage move: %d", moved.Int("score"))
	}
}

func TestStageClearViaEmptyString(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"name":              "Ana",
		"pipeline_stage_id": uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}

	if _, err := svc.Update(context.Background(), tenantID, *created.ID("id"), map[string]any{
		"pipeline_stage_id": "",
	}); err != nil {
		t.Fatalf("clear stage: %v", err)
	}
	if !store.lastPatch.Has("pipeline_stage_id") || store.lastPatch["pipeline_stage_id"] != nil {
		t.Fatalf("empty string must clear the stage, patch %v", store.lastPatch)
	}
}

func TestToggleAI(t *testing.T) {
	svc, _, _ := newTestService(t)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{"name": "Ana"})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if !created.Bool("ai_enabled") {
		t.Fatal("ai_enabled should default to true")
	}

	toggled, err := svc.ToggleAI(context.Background(), tenantID, *created.ID("id"))
	if err != nil {
		t.Fatalf("toggle ai: %v", err)
	}
	if toggled.Bool("ai_enabled") {
		t.Fatal("toggle should flip ai_enabled to false")
	}
}
