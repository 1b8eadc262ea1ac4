package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/apperr"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"
)

type stubStore struct {
	created   schema.Record
	createErr error
	calls     int
}

func (s *stubStore) Create(_ context.Context, _ uuid.UUID, rec schema.Record) (schema.Record, error) {
	s.calls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = rec
	out := schema.Record{"id": uuid.New()}
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func (s *stubStore) Update(_ context.Context, _ uuid.UUID, _ uuid.UUID, patch schema.Record) (schema.Record, error) {
	s.calls++
	return patch, nil
}

func (s *stubStore) Get(_ context.Context, _ uuid.UUID, _ uuid.UUID) (schema.Record, error) {
	s.calls++
	return nil, apperr.NotFound("message not found")
}

func (s *stubStore) List(_ context.Context, _ uuid.UUID, _ Filters) ([]schema.Record, error) {
	s.calls++
	return nil, nil
}

func (s *stubStore) Delete(_ context.Context, _ uuid.UUID, _ uuid.UUID) error {
	s.calls++
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *stubStore) {
	t.Helper()
	d := New(schema.NewRegistry(), schema.NewEngine(validator.New()), logger.New("test"))
	store := &stubStore{}
	d.Register(schema.KindMessage, store)
	return d, store
}

func TestCreateRejectsBeforeStore(t *testing.T) {
	d, store := newTestDispatcher(t)

	_, err := d.Create(context.Background(), schema.KindMessage, uuid.New(), map[string]any{
		"conversation_id": uuid.NewString(),
		"contact_id":      uuid.NewString(),
		"content":         "hi",
		"direction":       "inbound",
		// sender_type missing
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("store must not be called on validation failure")
	}

	fields := apperr.Fields(err)
	if len(fields) != 1 || fields[0].Field != "sender_type" {
		t.Fatalf("unexpected field errors %v", fields)
	}
}

func TestCreatePersistsDefaultedRecord(t *testing.T) {
	d, store := newTestDispatcher(t)

	rec, err := d.Create(context.Background(), schema.KindMessage, uuid.New(), map[string]any{
		"conversation_id": uuid.NewString(),
		"contact_id":      uuid.NewString(),
		"content":         "hi",
		"sender_type":     "human",
		"direction":       "inbound",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.created.String("content_type") != "text" {
		t.Fatalf("content_type default not applied: %v", store.created)
	}
	if rec.ID("id") == nil {
		t.Fatal("store-assigned identity missing from result")
	}
}

func TestStoreFailureWrappedAsStoreKind(t *testing.T) {
	d, store := newTestDispatcher(t)
	store.createErr = errors.New("connection refused")

	_, err := d.Create(context.Background(), schema.KindMessage, uuid.New(), map[string]any{
		"conversation_id": uuid.NewString(),
		"contact_id":      uuid.NewString(),
		"content":         "hi",
		"sender_type":     "human",
		"direction":       "inbound",
	})
	if !apperr.Is(err, apperr.KindStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !errors.Is(err, store.createErr) {
		t.Fatal("underlying store error lost")
	}
}

func TestAbandonedStoreCallReported(t *testing.T) {
	d, store := newTestDispatcher(t)
	store.createErr = context.Canceled

	_, err := d.Create(context.Background(), schema.KindMessage, uuid.New(), map[string]any{
		"conversation_id": uuid.NewString(),
		"contact_id":      uuid.NewString(),
		"content":         "hi",
		"sender_type":     "human",
		"direction":       "inbound",
	})
	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if domainErr.Kind != apperr.KindStore || domainErr.Message != "store call abandoned" {
		t.Fatalf("unexpected error %+v", domainErr)
	}
}

func TestTypedStoreErrorsPassThrough(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Get(context.Background(), schema.KindMessage, uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("typed not-found must pass through untouched, got %v", err)
	}
}

func TestUnregisteredKind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Get(context.Background(), schema.KindDocument, uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error for unregistered kind, got %v", err)
	}
}
