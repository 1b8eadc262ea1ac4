package settings

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

const settingsColumns = `id, tenant_id, company_name, timezone, default_pipeline_id, ai_enabled, created_at, updated_at`

// Settings is the persisted per-tenant settings row.
type Settings struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	CompanyName       *string
	Timezone          string
	DefaultPipelineID *uuid.UUID
	AIEnabled         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository implements the settings store with PostgreSQL. Settings is a
// per-tenant singleton, so every operation is keyed on the tenant and the
// record ID argument in the store contract is ignored.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ dispatch.EntityStore = (*Repository)(nil)

// Create inserts the tenant's settings row. A second create for the same
// tenant is a conflict.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO settings (tenant_id, company_name, timezone, default_pipeline_id, ai_enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id) DO NOTHING
		RETURNING ` + settingsColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID, rec.StringPtr("company_name"), rec.String("timezone"),
		rec.ID("default_pipeline_id"), rec.Bool("ai_enabled"))

	s, err := scanSettings(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Conflict("settings already exist for tenant")
		}
		return nil, fmt.Errorf("create settings: %w", err)
	}
	return settingsRecord(s), nil
}

// Update applies the sparse patch to the tenant's row, creating it with
// defaults first when the tenant has none yet.
func (r *Repository) Update(ctx context.Context, tenantID, _ uuid.UUID, patch schema.Record) (schema.Record, error) {
	if err := r.ensureRow(ctx, tenantID); err != nil {
		return nil, err
	}

	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{"company_name", "timezone", "default_pipeline_id", "ai_enabled"} {
		if !patch.Has(column) {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, patch[column])
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.Get(ctx, tenantID, uuid.Nil)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, tenantID)

	query := fmt.Sprintf(`
		UPDATE settings SET %s
		WHERE tenant_id = $%d
		RETURNING `+settingsColumns, strings.Join(setClauses, ", "), argIdx)

	s, err := scanSettings(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return settingsRecord(s), nil
}

// Get retrieves the tenant's settings, creating the row with defaults on
// first read.
func (r *Repository) Get(ctx context.Context, tenantID, _ uuid.UUID) (schema.Record, error) {
	if err := r.ensureRow(ctx, tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + settingsColumns + ` FROM settings WHERE tenant_id = $1`

	s, err := scanSettings(r.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settingsRecord(s), nil
}

// List returns the singleton as a one-element list.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, _ dispatch.Filters) ([]schema.Record, error) {
	rec, err := r.Get(ctx, tenantID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	return []schema.Record{rec}, nil
}

// Delete resets the tenant to defaults by removing the row.
func (r *Repository) Delete(ctx context.Context, tenantID, _ uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM settings WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("delete settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("settings not found")
	}
	return nil
}

func (r *Repository) ensureRow(ctx context.Context, tenantID uuid.UUID) error {
	query := `
		INSERT INTO settings (tenant_id, timezone, ai_enabled)
		VALUES ($1, 'UTC', true)
		ON CONFLICT (tenant_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, tenantID); err != nil {
		return fmt.Errorf("ensure settings row: %w", err)
	}
	return nil
}

func scanSettings(row pgx.Row) (Settings, error) {
	var s Settings
	err := row.Scan(&s.ID, &s.TenantID, &s.CompanyName, &s.Timezone, &s.DefaultPipelineID,
		&s.AIEnabled, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func settingsRecord(s Settings) schema.Record {
	rec := schema.Record{
		"id":                  s.ID,
		"timezone":            s.Timezone,
		"ai_enabled":          s.AIEnabled,
		"created_at":          s.CreatedAt,
		"updated_at":          s.UpdatedAt,
		"company_name":        nil,
		"default_pipeline_id": nil,
	}
	if s.CompanyName != nil {
		rec["company_name"] = *s.CompanyName
	}
	if s.DefaultPipelineID != nil {
		rec["default_pipeline_id"] = *s.DefaultPipelineID
	}
	return rec
}
