package pipelines

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/apperr"
)

const pipelineColumns = `id, tenant_id, name, color, is_default, created_at, updated_at`

// Pipeline is the persisted pipeline row.
type Pipeline struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Color     *string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository implements the pipeline store with PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new pipelines repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ dispatch.EntityStore = (*Repository)(nil)

// Create inserts a pipeline.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO pipelines (tenant_id, name, color, is_default)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + pipelineColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID, rec.String("name"), rec.StringPtr("color"), rec.Bool("is_default"))

	p, err := scanPipeline(row)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return pipelineRecord(p), nil
}

// Update applies the sparse patch.
func (r *Repository) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{"name", "color", "is_default"} {
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
		UPDATE pipelines SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+pipelineColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	p, err := scanPipeline(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("pipeline not found")
		}
		return nil, fmt.Errorf("update pipeline: %w", err)
	}
	return pipelineRecord(p), nil
}

// Get retrieves a pipeline by ID within the tenant scope.
func (r *Repository) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE id = $1 AND tenant_id = $2`

	p, err := scanPipeline(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("pipeline not found")
		}
		return nil, fmt.Errorf("get pipeline: %w", err)
	}
	return pipelineRecord(p), nil
}

// List retrieves all pipelines of the tenant, default first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, _ dispatch.Filters) ([]schema.Record, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines
		WHERE tenant_id = $1 ORDER BY is_default DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("list pipelines: %w", err)
		}
		records = append(records, pipelineRecord(p))
	}
	return records, rows.Err()
}

// Delete removes a pipeline together with its stages.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("pipeline not found")
	}
	return nil
}

func scanPipeline(row pgx.Row) (Pipeline, error) {
	var p Pipeline
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Color, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func pipelineRecord(p Pipeline) schema.Record {
	rec := schema.Record{
		"id":         p.ID,
		"name":       p.Name,
		"is_default": p.IsDefault,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
		"color":      nil,
	}
	if p.Color != nil {
		rec["color"] = *p.Color
	}
	return rec
}

const stageColumns = `id, tenant_id, pipeline_id, name, color, display_order, created_at, updated_at`

// Stage is the persisted pipeline stage row.
type Stage struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	PipelineID   uuid.UUID
	Name         string
	Color        *string
	DisplayOrder int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StageRepository implements the pipeline stage store with PostgreSQL.
type StageRepository struct {
	pool *pgxpool.Pool
}

// NewStageRepository creates a new pipeline stages repository.
func NewStageRepository(pool *pgxpool.Pool) *StageRepository {
	return &StageRepository{pool: pool}
}

var _ dispatch.EntityStore = (*StageRepository)(nil)

// Create inserts a stage into its pipeline.
func (r *StageRepository) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO pipeline_stages (tenant_id, pipeline_id, name, color, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + stageColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID, rec.ID("pipeline_id"), rec.String("name"), rec.StringPtr("color"), rec.Int("display_order"))

	s, err := scanStage(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, apperr.NotFound("referenced pipeline not found")
		}
		return nil, fmt.Errorf("create pipeline stage: %w", err)
	}
	return stageRecord(s), nil
}

// Update applies the sparse patch. The parent pipeline link is immutable.
func (r *StageRepository) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{"name", "color", "display_order"} {
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
		UPDATE pipeline_stages SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+stageColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	s, err := scanStage(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("pipeline stage not found")
		}
		return nil, fmt.Errorf("update pipeline stage: %w", err)
	}
	return stageRecord(s), nil
}

// Get retrieves a stage by ID within the tenant scope.
func (r *StageRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE id = $1 AND tenant_id = $2`

	s, err := scanStage(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("pipeline stage not found")
		}
		return nil, fmt.Errorf("get pipeline stage: %w", err)
	}
	return stageRecord(s), nil
}

// List retrieves stages in display order, optionally scoped to one pipeline.
func (r *StageRepository) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}

	if pipelineID := filters["pipeline_id"]; pipelineID != "" {
		conditions = append(conditions, "pipeline_id = $2")
		args = append(args, pipelineID)
	}

	query := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY display_order ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pipeline stages: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("list pipeline stages: %w", err)
		}
		records = append(records, stageRecord(s))
	}
	return records, rows.Err()
}

// Delete removes a stage.
func (r *StageRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM pipeline_stages WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete pipeline stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("pipeline stage not found")
	}
	return nil
}

func scanStage(row pgx.Row) (Stage, error) {
	var s Stage
	err := row.Scan(&s.ID, &s.TenantID, &s.PipelineID, &s.Name, &s.Color, &s.DisplayOrder, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func stageRecord(s Stage) schema.Record {
	rec := schema.Record{
		"id":            s.ID,
		"pipeline_id":   s.PipelineID,
		"name":          s.Name,
		"display_order": s.DisplayOrder,
		"created_at":    s.CreatedAt,
		"updated_at":    s.UpdatedAt,
		"color":         nil,
	}
	if s.Color != nil {
		rec["color"] = *s.Color
	}
	return rec
}
