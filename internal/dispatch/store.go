// Package dispatch is the mutation boundary of the application. It runs the
// validate -> prepare -> persist pipeline for every entity kind and is the
// only component that performs I/O against the store.
package dispatch

import (
	"context"

	"github.com/google/uuid"

	"crmhub_backend/internal/schema"
)

// Filters carries the optional list query parameters from the transport
// boundary; each store interprets the keys it understands.
type Filters map[string]string

// EntityStore is the persistence contract one repository implements for one
// entity kind. No transactional semantics are assumed beyond per-call atomicity.
type EntityStore interface {
	Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error)
	List(ctx context.Context, tenantID uuid.UUID, filters Filters) ([]schema.Record, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
