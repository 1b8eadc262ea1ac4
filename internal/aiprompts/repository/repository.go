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

const promptNotFoundMessage = "AI prompt not found"

const promptColumns = `id, tenant_id, name, description, version, parent_id, prompt_text, system_prompt,
	model, temperature, max_tokens, context_type, channel, allowed_actions, forbidden_actions,
	constraints, is_active, is_default, created_at, updated_at`

// Prompt is the persisted AI prompt row.
type Prompt struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Name             string
	Description      *string
	Version          int
	ParentID         *uuid.UUID
	PromptText       string
	SystemPrompt     *string
	Model            string
	Temperature      float64
	MaxTokens        int
	ContextType      *string
	Channel          *string
	AllowedActions   []string
	ForbiddenActions []string
	Constraints      *string
	IsActive         bool
	IsDefault        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Repo implements the AI prompt store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new AI prompts repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ dispatch.EntityStore = (*Repo)(nil)

// Create inserts a prompt version and returns it with its store-assigned
// identity.
func (r *Repo) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO ai_prompts (tenant_id, name, description, version, parent_id, prompt_text, system_prompt,
			model, temperature, max_tokens, context_type, channel, allowed_actions, forbidden_actions,
			constraints, is_active, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + promptColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID,
		rec.String("name"),
		rec.StringPtr("description"),
		rec.Int("version"),
		rec.ID("parent_id"),
		rec.String("prompt_text"),
		rec.StringPtr("system_prompt"),
		rec.String("model"),
		rec.Float("temperature"),
		rec.Int("max_tokens"),
		rec.StringPtr("context_type"),
		rec.StringPtr("channel"),
		rec.Strings("allowed_actions"),
		rec.Strings("forbidden_actions"),
		rec.StringPtr("constraints"),
		rec.Bool("is_active"),
		rec.Bool("is_default"),
	)

	prompt, err := scanPrompt(row)
	if err != nil {
		return nil, fmt.Errorf("create ai prompt: %w", err)
	}
	return promptRecord(prompt), nil
}

// Update applies the sparse patch and returns the updated row. Version and
// parent lineage columns are never part of a patch.
func (r *Repo) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{
		"name", "description", "prompt_text", "system_prompt", "model", "temperature",
		"max_tokens", "context_type", "channel", "allowed_actions", "forbidden_actions",
		"constraints", "is_active", "is_default",
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
		UPDATE ai_prompts SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+promptColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	prompt, err := scanPrompt(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(promptNotFoundMessage)
		}
		return nil, fmt.Errorf("update ai prompt: %w", err)
	}
	return promptRecord(prompt), nil
}

// Get retrieves a prompt by ID within the tenant scope.
func (r *Repo) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + promptColumns + ` FROM ai_prompts WHERE id = $1 AND tenant_id = $2`

	prompt, err := scanPrompt(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(promptNotFoundMessage)
		}
		return nil, fmt.Errorf("get ai prompt: %w", err)
	}
	return promptRecord(prompt), nil
}

// List retrieves prompts matching the filters, newest first.
func (r *Repo) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argIdx := 2

	for _, column := range []string{"context_type", "channel", "parent_id"} {
		if value := filters[column]; value != "" {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIdx))
			args = append(args, value)
			argIdx++
		}
	}
	if active := filters["active"]; active != "" {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, active == "true")
		argIdx++
	}

	query := `SELECT ` + promptColumns + ` FROM ai_prompts WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ai prompts: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("list ai prompts: %w", err)
		}
		records = append(records, promptRecord(prompt))
	}
	return records, rows.Err()
}

// Delete removes a prompt version.
func (r *Repo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM ai_prompts WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete ai prompt: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(promptNotFoundMessage)
	}
	return nil
}

// ClearDefaultForContext clears is_default on every prompt sharing the same
// context_type and channel, so at most one default exists per pair. The row
// identified by keepID is left untouched, which lets the caller demote
// siblings after the promoted prompt has already been persisted.
func (r *Repo) ClearDefaultForContext(ctx context.Context, tenantID, keepID uuid.UUID, contextType, channel *string) error {
	query := `
		UPDATE ai_prompts SET is_default = false, updated_at = now()
		WHERE tenant_id = $1 AND id <> $2 AND is_default = true
		  AND context_type IS NOT DISTINCT FROM $3
		  AND channel IS NOT DISTINCT FROM $4`

	if _, err := r.pool.Exec(ctx, query, tenantID, keepID, contextType, channel); err != nil {
		return fmt.Errorf("clear default prompts: %w", err)
	}
	return nil
}

func scanPrompt(row pgx.Row) (Prompt, error) {
	var p Prompt
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Version, &p.ParentID, &p.PromptText,
		&p.SystemPrompt, &p.Model, &p.Temperature, &p.MaxTokens, &p.ContextType, &p.Channel,
		&p.AllowedActions, &p.ForbiddenActions, &p.Constraints, &p.IsActive, &p.IsDefault,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func promptRecord(p Prompt) schema.Record {
	rec := schema.Record{
		"id":                p.ID,
		"name":              p.Name,
		"version":           p.Version,
		"prompt_text":       p.PromptText,
		"model":             p.Model,
		"temperature":       p.Temperature,
		"max_tokens":        p.MaxTokens,
		"allowed_actions":   p.AllowedActions,
		"forbidden_actions": p.ForbiddenActions,
		"is_active":         p.IsActive,
		"is_default":        p.IsDefault,
		"created_at":        p.CreatedAt,
		"updated_at":        p.UpdatedAt,
		"description":       nil,
		"parent_id":         nil,
		"system_prompt":     nil,
		"context_type":      nil,
		"channel":           nil,
		"constraints":       nil,
	}
	if p.AllowedActions == nil {
		rec["allowed_actions"] = []string{}
	}
	if p.ForbiddenActions == nil {
		rec["forbidden_actions"] = []string{}
	}
	if p.Description != nil {
		rec["description"] = *p.Description
	}
	if p.ParentID != nil {
		rec["parent_id"] = *p.ParentID
	}
	if p.SystemPrompt != nil {
		rec["system_prompt"] = *p.SystemPrompt
	}
	if p.ContextType != nil {
		rec["context_type"] = *p.ContextType
	}
	if p.Channel != nil {
		rec["channel"] = *p.Channel
	}
	if p.Constraints != nil {
		rec["constraints"] = *p.Constraints
	}
	return rec
}
