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
	rows        map[uuid.UUID]schema.Record
	lastPatch   schema.Record
	createCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]schema.Record)}
}

func (f *fakeStore) Create(_ context.Context, _ uuid.UUID, rec schema.Record) (schema.Record, error) {
	f.createCalls++
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
	out := make([]schema.Record, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
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
	dispatcher.Register(schema.KindConversation, store)
	dispatcher.Register(schema.KindMessage, store)
	bus := &recordingBus{}
	return New(dispatcher, bus, log), store, bus
}

func TestUpdateSparseStatusPatch(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"contact_id": uuid.NewString(),
		"subject":    "delivery delay",
	})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	id := created.ID("id")

	updated, err := svc.Update(context.Background(), tenantID, *id, map[string]any{"status": "closed"})
	if err != nil {
		t.Fatalf("update conversation: %v", err)
	}

	if len(store.lastPatch) != 1 {
		t.Fatalf("expected 1-field patch, got %d fields: %v", len(store.lastPatch), store.lastPatch)
	}
	if updated.String("status") != "closed" {
		t.Fatalf("status = %q, want closed", updated.String("status"))
	}
	if updated.String("subject") != "delivery delay" {
		t.Fatalf("subject lost across sparse update: %q", updated.String("subject"))
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{"contact_id": uuid.NewString()})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	calls := store.createCalls
	if _, err := svc.Update(context.Background(), tenantID, *created.ID("id"), map[string]any{"status": "archived"}); err == nil {
		t.Fatal("expected enum rejection for status archived")
	}
	if store.createCalls != calls || store.lastPatch != nil {
		t.Fatal("store must not be touched on validation failure")
	}
}

func TestReassignmentPublishesEvent(t *testing.T) {
	svc, _, bus := newTestService(t)
	tenantID := uuid.New()
	firstAgent := uuid.New()
	secondAgent := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, map[string]any{
		"contact_id":  uuid.NewString(),
		"assigned_to": firstAgent.String(),
	})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected assignment event on create, got %d events", len(bus.published))
	}

	if _, err := svc.Update(context.Background(), tenantID, *created.ID("id"), map[string]any{
		"assigned_to": secondAgent.String(),
	}); err != nil {
		t.Fatalf("reassign conversation: %v", err)
	}

	if len(bus.published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(bus.published))
	}
	assigned, ok := bus.published[1].(events.ConversationAssigned)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.published[1])
	}
	if assigned.AssignedTo != secondAgent {
		t.Fatalf("assigned to %s, want %s", assigned.AssignedTo, secondAgent)
	}
	if assigned.PreviousAgent == nil || *assigned.PreviousAgent != firstAgent {
		t.Fatalf("previous agent = %v, want %s", assigned.PreviousAgent, firstAgent)
	}
}

func TestCreateMessageForcesConversationID(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenantID := uuid.New()
	conversationID := uuid.New()

	msg, err := svc.CreateMessage(context.Background(), tenantID, conversationID, map[string]any{
		"conversation_id": uuid.NewString(),
		"contact_id":      uuid.NewString(),
		"content":         "hello",
		"sender_type":     "human",
		"direction":       "inbound",
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if got := msg.ID("conversation_id"); got == nil || *got != conversationID {
		t.Fatalf("conversation_id = %v, want route value %s", got, conversationID)
	}
	if store.createCalls != 1 {
		t.Fatalf("expected exactly one store create, got %d", store.createCalls)
	}
}
