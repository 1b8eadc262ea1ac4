package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/apperr"
)

const contactNotFoundMessage = "contact not found"

const contactColumns = `id, tenant_id, name, email, phone, whatsapp, document, status, source, score,
	custom_fields, notes, tags, ai_enabled, pipeline_id, pipeline_stage_id, created_at, updated_at`

// Contact is the persisted contact row.
type Contact struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Name            string
	Email           *string
	Phone           *string
	Whatsapp        *string
	Document        *string
	Status          string
	Source          *string
	Score           int
	CustomFields    map[string]any
	Notes           *string
	Tags            []string
	AIEnabled       bool
	PipelineID      *uuid.UUID
	PipelineStageID *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repo implements the contact store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new contacts repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo satisfies the dispatcher's store contract.
var _ dispatch.EntityStore = (*Repo)(nil)

// Create inserts a fully defaulted contact record and returns it with its
// store-assigned identity.
func (r *Repo) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO contacts (tenant_id, name, email, phone, whatsapp, document, status, source, score,
			custom_fields, notes, tags, ai_enabled, pipeline_id, pipeline_stage_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + contactColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID,
		rec.String("name"),
		rec.StringPtr("email"),
		rec.StringPtr("phone"),
		rec.StringPtr("whatsapp"),
		rec.StringPtr("document"),
		rec.String("status"),
		rec.StringPtr("source"),
		rec.Int("score"),
		rec.Map("custom_fields"),
		rec.StringPtr("notes"),
		rec.Strings("tags"),
		rec.Bool("ai_enabled"),
		rec.ID("pipeline_id"),
		rec.ID("pipeline_stage_id"),
	)

	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return toRecord(contact), nil
}

// Update applies the sparse patch and returns the updated row. An empty patch
// returns the current row unchanged.
func (r *Repo) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{
		"name", "email", "phone", "whatsapp", "document", "status", "source", "score",
		"custom_fields", "notes", "tags", "ai_enabled", "pipeline_id", "pipeline_stage_id",
	} {
		if !patch.Has(column) {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, patch[column])
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.Get(ctx, tenantID, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id, tenantID)

	query := fmt.Sprintf(`
		UPDATE contacts SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+contactColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	contact, err := scanContact(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(contactNotFoundMessage)
		}
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return toRecord(contact), nil
}

// Get retrieves a contact by ID within the tenant scope.
func (r *Repo) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND tenant_id = $2`

	contact, err := scanContact(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(contactNotFoundMessage)
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return toRecord(contact), nil
}

// List retrieves contacts matching the filters, newest first.
func (r *Repo) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argIdx := 2

	if status := filters["status"]; status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, status)
		argIdx++
	}
	if pipelineID := filters["pipeline_id"]; pipelineID != "" {
		conditions = append(conditions, fmt.Sprintf("pipeline_id = $%d", argIdx))
		args = append(args, pipelineID)
		argIdx++
	}
	if search := filters["search"]; search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if tag := filters["tag"]; tag != "" {
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", argIdx))
		args = append(args, []string{tag})
		argIdx++
	}

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("list contacts: %w", err)
		}
		records = append(records, toRecord(contact))
	}
	return records, rows.Err()
}

// Delete removes a contact. Conversation cascade is handled by the store schema.
func (r *Repo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(contactNotFoundMessage)
	}
	return nil
}

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Whatsapp, &c.Document,
		&c.Status, &c.Source, &c.Score, &c.CustomFields, &c.Notes, &c.Tags,
		&c.AIEnabled, &c.PipelineID, &c.PipelineStageID, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func toRecord(c Contact) schema.Record {
	rec := schema.Record{
		"id":                c.ID,
		"name":              c.Name,
		"status":            c.Status,
		"score":             c.Score,
		"custom_fields":     c.CustomFields,
		"tags":              c.Tags,
		"ai_enabled":        c.AIEnabled,
		"created_at":        c.CreatedAt,
		"updated_at":        c.UpdatedAt,
		"email":             nil,
		"phone":             nil,
		"whatsapp":          nil,
		"document":          nil,
		"source":            nil,
		"notes":             nil,
		"pipeline_id":       nil,
		"pipeline_stage_id": nil,
	}
	if c.CustomFields == nil {
		rec["custom_fields"] = map[string]any{}
	}
	if c.Tags == nil {
		rec["tags"] = []string{}
	}
	if c.Email != nil {
		rec["email"] = *c.Email
	}
	if c.Phone != nil {
		rec["phone"] = *c.Phone
	}
	if c.Whatsapp != nil {
		rec["whatsapp"] = *c.Whatsapp
	}
	if c.Document != nil {
		rec["document"] = *c.Document
	}
	if c.Source != nil {
		rec["source"] = *c.Source
	}
	if c.Notes != nil {
		rec["notes"] = *c.Notes
	}
	if c.PipelineID != nil {
		rec["pipeline_id"] = *c.PipelineID
	}
	if c.PipelineStageID != nil {
		rec["pipeline_stage_id"] = *c.PipelineStageID
	}
	return rec
}
