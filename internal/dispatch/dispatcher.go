package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/apperr"
	"crmhub_backend/platform/logger"
)

// Dispatcher routes mutations through the shared validation pipeline:
// raw input -> schema validation -> mutation contract -> store call.
// A request is strictly Validate -> Mutate -> Persist; on any validation
// failure no store call is attempted.
type Dispatcher struct {
	registry *schema.Registry
	engine   *schema.Engine
	stores   map[schema.Kind]EntityStore
	log      *logger.Logger
}

// New creates a dispatcher. Stores register per entity kind at startup.
func New(registry *schema.Registry, engine *schema.Engine, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		engine:   engine,
		stores:   make(map[schema.Kind]EntityStore),
		log:      log,
	}
}

// Register binds the store for an entity kind. Called once per kind at startup.
func (d *Dispatcher) Register(kind schema.Kind, store EntityStore) {
	d.stores[kind] = store
}

// PrepareCreate validates raw input against the create schema and returns a
// complete record with all defaults resolved. Pure: no store access.
func (d *Dispatcher) PrepareCreate(kind schema.Kind, raw map[string]any) (schema.Record, error) {
	s, ok := d.registry.Create(kind)
	if !ok {
		return nil, apperr.Internal("no schema registered for entity kind " + string(kind))
	}
	rec, fieldErrs := d.engine.Validate(s, raw)
	if len(fieldErrs) > 0 {
		d.log.MutationRejected(string(kind), len(fieldErrs))
		return nil, apperr.ValidationFields(fieldErrs)
	}
	return rec, nil
}

// PrepareUpdate validates only the fields present in raw input against the
// derived update schema and returns a sparse patch. Immutable fields supplied
// by the caller are ignored, never an error. Pure: no store access.
func (d *Dispatcher) PrepareUpdate(kind schema.Kind, raw map[string]any) (schema.Record, error) {
	s, ok := d.registry.Update(kind)
	if !ok {
		return nil, apperr.Internal("no schema registered for entity kind " + string(kind))
	}
	patch, fieldErrs := d.engine.Validate(s, raw)
	if len(fieldErrs) > 0 {
		d.log.MutationRejected(string(kind), len(fieldErrs))
		return nil, apperr.ValidationFields(fieldErrs)
	}
	return patch, nil
}

// Create runs the full create pipeline and persists the record.
func (d *Dispatcher) Create(ctx context.Context, kind schema.Kind, tenantID uuid.UUID, raw map[string]any) (schema.Record, error) {
	rec, err := d.PrepareCreate(kind, raw)
	if err != nil {
		return nil, err
	}
	store, err := d.storeFor(kind)
	if err != nil {
		return nil, err
	}
	created, err := store.Create(ctx, tenantID, rec)
	if err != nil {
		return nil, d.storeErr("create "+string(kind), err)
	}
	return created, nil
}

// Update runs the full update pipeline and persists the patch. An empty patch
// (no recognized fields supplied) returns the current record unchanged.
func (d *Dispatcher) Update(ctx context.Context, kind schema.Kind, tenantID, id uuid.UUID, raw map[string]any) (schema.Record, error) {
	patch, err := d.PrepareUpdate(kind, raw)
	if err != nil {
		return nil, err
	}
	store, err := d.storeFor(kind)
	if err != nil {
		return nil, err
	}
	updated, err := store.Update(ctx, tenantID, id, patch)
	if err != nil {
		return nil, d.storeErr("update "+string(kind), err)
	}
	return updated, nil
}

// Get fetches a record by identity.
func (d *Dispatcher) Get(ctx context.Context, kind schema.Kind, tenantID, id uuid.UUID) (schema.Record, error) {
	store, err := d.storeFor(kind)
	if err != nil {
		return nil, err
	}
	rec, err := store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, d.storeErr("get "+string(kind), err)
	}
	return rec, nil
}

// List fetches records matching the filters.
func (d *Dispatcher) List(ctx context.Context, kind schema.Kind, tenantID uuid.UUID, filters Filters) ([]schema.Record, error) {
	store, err := d.storeFor(kind)
	if err != nil {
		return nil, err
	}
	recs, err := store.List(ctx, tenantID, filters)
	if err != nil {
		return nil, d.storeErr("list "+string(kind), err)
	}
	return recs, nil
}

// Delete removes a record by identity. Cascades belong to the store.
func (d *Dispatcher) Delete(ctx context.Context, kind schema.Kind, tenantID, id uuid.UUID) error {
	store, err := d.storeFor(kind)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, tenantID, id); err != nil {
		return d.storeErr("delete "+string(kind), err)
	}
	return nil
}

func (d *Dispatcher) storeFor(kind schema.Kind) (EntityStore, error) {
	store, ok := d.stores[kind]
	if !ok {
		return nil, apperr.Internal("no store registered for entity kind " + string(kind))
	}
	return store, nil
}

// storeErr translates store faults into the shared error taxonomy. Typed
// domain errors from repositories (not found, conflict) pass through; an
// abandoned call is reported as a store failure, never left indeterminate.
func (d *Dispatcher) storeErr(op string, err error) error {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return err
	}
	d.log.StoreError(op, err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindStore, "store call abandoned", err).WithOp(op)
	}
	return apperr.Wrap(apperr.KindStore, "store operation failed", err).WithOp(op)
}
