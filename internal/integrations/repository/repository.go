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

const integrationNotFoundMessage = "integration not found"

const integrationColumns = `id, tenant_id, channel, name, webhook_url, secret, is_active,
	last_health_at, last_health_ok, last_health_error, created_at, updated_at`

// Integration is the persisted channel integration row.
type Integration struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Channel         string
	Name            string
	WebhookURL      *string
	Secret          *string
	IsActive        bool
	LastHealthAt    *time.Time
	LastHealthOK    *bool
	LastHealthError *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repo implements the integration store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new integrations repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ dispatch.EntityStore = (*Repo)(nil)

// Create inserts an integration.
func (r *Repo) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO integrations (tenant_id, channel, name, webhook_url, secret, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + integrationColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID, rec.String("channel"), rec.String("name"),
		rec.StringPtr("webhook_url"), rec.StringPtr("secret"), rec.Bool("is_active"))

	integ, err := scanIntegration(row)
	if err != nil {
		return nil, fmt.Errorf("create integration: %w", err)
	}
	return integrationRecord(integ), nil
}

// Update applies the sparse patch.
func (r *Repo) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{"channel", "name", "webhook_url", "secret", "is_active"} {
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
		UPDATE integrations SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+integrationColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	integ, err := scanIntegration(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(integrationNotFoundMessage)
		}
		return nil, fmt.Errorf("update integration: %w", err)
	}
	return integrationRecord(integ), nil
}

// Get retrieves an integration by ID within the tenant scope.
func (r *Repo) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = $1 AND tenant_id = $2`

	integ, err := scanIntegration(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(integrationNotFoundMessage)
		}
		return nil, fmt.Errorf("get integration: %w", err)
	}
	return integrationRecord(integ), nil
}

// List retrieves integrations matching the filters.
func (r *Repo) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argIdx := 2

	if channel := filters["channel"]; channel != "" {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", argIdx))
		args = append(args, channel)
		argIdx++
	}
	if active := filters["active"]; active != "" {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, active == "true")
		argIdx++
	}

	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("list integrations: %w", err)
		}
		records = append(records, integrationRecord(integ))
	}
	return records, rows.Err()
}

// Delete removes an integration.
func (r *Repo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM integrations WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(integrationNotFoundMessage)
	}
	return nil
}

// ListActiveAll returns every active integration across all tenants. Used by
// the scheduled health check sweep.
func (r *Repo) ListActiveAll(ctx context.Context) ([]Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE is_active = true`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active integrations: %w", err)
	}
	defer rows.Close()

	var out []Integration
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("list active integrations: %w", err)
		}
		out = append(out, integ)
	}
	return out, rows.Err()
}

// GetRow retrieves the raw integration row for health checking.
func (r *Repo) GetRow(ctx context.Context, tenantID, id uuid.UUID) (Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = $1 AND tenant_id = $2`

	integ, err := scanIntegration(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Integration{}, apperr.NotFound(integrationNotFoundMessage)
		}
		return Integration{}, fmt.Errorf("get integration: %w", err)
	}
	return integ, nil
}

// RecordHealth stores the outcome of a health check.
func (r *Repo) RecordHealth(ctx context.Context, tenantID, id uuid.UUID, healthy bool, checkErr string) error {
	query := `
		UPDATE integrations
		SET last_health_at = now(), last_health_ok = $3, last_health_error = NULLIF($4, '')
		WHERE id = $1 AND tenant_id = $2`

	if _, err := r.pool.Exec(ctx, query, id, tenantID, healthy, checkErr); err != nil {
		return fmt.Errorf("record integration health: %w", err)
	}
	return nil
}

func scanIntegration(row pgx.Row) (Integration, error) {
	var i Integration
	err := row.Scan(
		&i.ID, &i.TenantID, &i.Channel, &i.Name, &i.WebhookURL, &i.Secret, &i.IsActive,
		&i.LastHealthAt, &i.LastHealthOK, &i.LastHealthError, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

func integrationRecord(i Integration) schema.Record {
	rec := schema.Record{
		"id":                i.ID,
		"channel":           i.Channel,
		"name":              i.Name,
		"is_active":         i.IsActive,
		"created_at":        i.CreatedAt,
		"updated_at":        i.UpdatedAt,
		"webhook_url":       nil,
		"last_health_at":    nil,
		"last_health_ok":    nil,
		"last_health_error": nil,
	}
	if i.WebhookURL != nil {
		rec["webhook_url"] = *i.WebhookURL
	}
	if i.LastHealthAt != nil {
		rec["last_health_at"] = *i.LastHealthAt
	}
	if i.LastHealthOK != nil {
		rec["last_health_ok"] = *i.LastHealthOK
	}
	if i.LastHealthError != nil {
		rec["last_health_error"] = *i.LastHealthError
	}
	return rec
}
