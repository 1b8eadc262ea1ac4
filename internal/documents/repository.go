package documents

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

const documentColumns = `id, tenant_id, title, content, category, tags, is_published, created_at, updated_at`

// Document is the persisted knowledge base document row.
type Document struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Content     *string
	Category    *string
	Tags        []string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository implements the document store with PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new documents repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ dispatch.EntityStore = (*Repository)(nil)

// Create inserts a document.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO documents (tenant_id, title, content, category, tags, is_published)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + documentColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID, rec.String("title"), rec.StringPtr("content"), rec.StringPtr("category"),
		rec.Strings("tags"), rec.Bool("is_published"))

	d, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return documentRecord(d), nil
}

// Update applies the sparse patch.
func (r *Repository) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{"title", "content", "category", "tags", "is_published"} {
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
		UPDATE documents SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+documentColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	d, err := scanDocument(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return documentRecord(d), nil
}

// Get retrieves a document by ID within the tenant scope.
func (r *Repository) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND tenant_id = $2`

	d, err := scanDocument(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return documentRecord(d), nil
}

// List retrieves documents matching the filters, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argIdx := 2

	if category := filters["category"]; category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, category)
		argIdx++
	}
	if tag := filters["tag"]; tag != "" {
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", argIdx))
		args = append(args, []string{tag})
		argIdx++
	}
	if published := filters["published"]; published != "" {
		conditions = append(conditions, fmt.Sprintf("is_published = $%d", argIdx))
		args = append(args, published == "true")
		argIdx++
	}
	if search := filters["search"]; search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		records = append(records, documentRecord(d))
	}
	return records, rows.Err()
}

// Delete removes a document.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("document not found")
	}
	return nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.TenantID, &d.Title, &d.Content, &d.Category, &d.Tags,
		&d.IsPublished, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func documentRecord(d Document) schema.Record {
	rec := schema.Record{
		"id":           d.ID,
		"title":        d.Title,
		"tags":         d.Tags,
		"is_published": d.IsPublished,
		"created_at":   d.CreatedAt,
		"updated_at":   d.UpdatedAt,
		"content":      nil,
		"category":     nil,
	}
	if d.Tags == nil {
		rec["tags"] = []string{}
	}
	if d.Content != nil {
		rec["content"] = *d.Content
	}
	if d.Category != nil {
		rec["category"] = *d.Category
	}
	return rec
}
