package repository

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

const conversationNotFoundMessage = "conversation not found"

const conversationColumns = `id, tenant_id, contact_id, channel, channel_thread_id, status, priority,
	subject, assigned_to, ai_assistant_enabled, created_at, updated_at`

// Conversation is the persisted conversation row.
type Conversation struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	ContactID          uuid.UUID
	Channel            string
	ChannelThreadID    *string
	Status             string
	Priority           string
	Subject            *string
	AssignedTo         *uuid.UUID
	AIAssistantEnabled bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Repo implements the conversation store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new conversations repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ dispatch.EntityStore = (*Repo)(nil)

// Create inserts a conversation and returns it with its store-assigned identity.
func (r *Repo) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO conversations (tenant_id, contact_id, channel, channel_thread_id, status, priority,
			subject, assigned_to, ai_assistant_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + conversationColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID,
		rec.ID("contact_id"),
		rec.String("channel"),
		rec.StringPtr("channel_thread_id"),
		rec.String("status"),
		rec.String("priority"),
		rec.StringPtr("subject"),
		rec.ID("assigned_to"),
		rec.Bool("ai_assistant_enabled"),
	)

	conv, err := scanConversation(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperr.NotFound("referenced contact not found")
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conversationRecord(conv), nil
}

// Update applies the sparse patch and returns the updated row.
func (r *Repo) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{
		"contact_id", "channel", "channel_thread_id", "status", "priority",
		"subject", "assigned_to", "ai_assistant_enabled",
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
		UPDATE conversations SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+conversationColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	conv, err := scanConversation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(conversationNotFoundMessage)
		}
		if isForeignKeyViolation(err) {
			return nil, apperr.NotFound("referenced contact not found")
		}
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	return conversationRecord(conv), nil
}

// Get retrieves a conversation by ID within the tenant scope.
func (r *Repo) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 AND tenant_id = $2`

	conv, err := scanConversation(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(conversationNotFoundMessage)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conversationRecord(conv), nil
}

// List retrieves conversations matching the filters, newest first.
func (r *Repo) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argIdx := 2

	for _, column := range []string{"status", "channel", "priority", "contact_id", "assigned_to"} {
		if value := filters[column]; value != "" {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIdx))
			args = append(args, value)
			argIdx++
		}
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		records = append(records, conversationRecord(conv))
	}
	return records, rows.Err()
}

// Delete removes a conversation together with its messages.
func (r *Repo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(conversationNotFoundMessage)
	}
	return nil
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var c Conversation
	err := row.Scan(
		&c.ID, &c.TenantID, &c.ContactID, &c.Channel, &c.ChannelThreadID, &c.Status,
		&c.Priority, &c.Subject, &c.AssignedTo, &c.AIAssistantEnabled, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func conversationRecord(c Conversation) schema.Record {
	rec := schema.Record{
		"id":                   c.ID,
		"contact_id":           c.ContactID,
		"channel":              c.Channel,
		"status":               c.Status,
		"priority":             c.Priority,
		"ai_assistant_enabled": c.AIAssistantEnabled,
		"created_at":           c.CreatedAt,
		"updated_at":           c.UpdatedAt,
		"channel_thread_id":    nil,
		"subject":              nil,
		"assigned_to":          nil,
	}
	if c.ChannelThreadID != nil {
		rec["channel_thread_id"] = *c.ChannelThreadID
	}
	if c.Subject != nil {
		rec["subject"] = *c.Subject
	}
	if c.AssignedTo != nil {
		rec["assigned_to"] = *c.AssignedTo
	}
	return rec
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
