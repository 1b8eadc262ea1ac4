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

const messageNotFoundMessage = "message not found"

const messageColumns = `id, tenant_id, conversation_id, contact_id, content, content_type, media_url,
	sender_type, direction, status, ai_context, ai_prompt_version_id, created_at, updated_at`

// Message is the persisted message row.
type Message struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	ConversationID    uuid.UUID
	ContactID         uuid.UUID
	Content           string
	ContentType       string
	MediaURL          *string
	SenderType        string
	Direction         string
	Status            string
	AIContext         map[string]any
	AIPromptVersionID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MessageRepo implements the message store with PostgreSQL.
type MessageRepo struct {
	pool *pgxpool.Pool
}

// NewMessages creates a new messages repository.
func NewMessages(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

var _ dispatch.EntityStore = (*MessageRepo)(nil)

// Create inserts a message into its conversation thread.
func (r *MessageRepo) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO messages (tenant_id, conversation_id, contact_id, content, content_type, media_url,
			sender_type, direction, status, ai_context, ai_prompt_version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + messageColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID,
		rec.ID("conversation_id"),
		rec.ID("contact_id"),
		rec.String("content"),
		rec.String("content_type"),
		rec.StringPtr("media_url"),
		rec.String("sender_type"),
		rec.String("direction"),
		rec.String("status"),
		rec.Map("ai_context"),
		rec.ID("ai_prompt_version_id"),
	)

	msg, err := scanMessage(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperr.NotFound("referenced conversation or contact not found")
		}
		return nil, fmt.Errorf("create message: %w", err)
	}
	return messageRecord(msg), nil
}

// Update applies the sparse patch and returns the updated row.
func (r *MessageRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{
		"contact_id", "content", "content_type", "media_url",
		"sender_type", "direction", "status", "ai_context", "ai_prompt_version_id",
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
		UPDATE messages SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+messageColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(messageNotFoundMessage)
		}
		return nil, fmt.Errorf("update message: %w", err)
	}
	return messageRecord(msg), nil
}

// Get retrieves a message by ID within the tenant scope.
func (r *MessageRepo) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1 AND tenant_id = $2`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(messageNotFoundMessage)
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return messageRecord(msg), nil
}

// List retrieves messages matching the filters in thread order, oldest first.
func (r *MessageRepo) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argIdx := 2

	for _, column := range []string{"conversation_id", "contact_id", "sender_type", "direction"} {
		if value := filters[column]; value != "" {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIdx))
			args = append(args, value)
			argIdx++
		}
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		records = append(records, messageRecord(msg))
	}
	return records, rows.Err()
}

// Delete removes a message.
func (r *MessageRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(messageNotFoundMessage)
	}
	return nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.TenantID, &m.ConversationID, &m.ContactID, &m.Content, &m.ContentType,
		&m.MediaURL, &m.SenderType, &m.Direction, &m.Status, &m.AIContext,
		&m.AIPromptVersionID, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func messageRecord(m Message) schema.Record {
	rec := schema.Record{
		"id":                   m.ID,
		"conversation_id":      m.ConversationID,
		"contact_id":           m.ContactID,
		"content":              m.Content,
		"content_type":         m.ContentType,
		"sender_type":          m.SenderType,
		"direction":            m.Direction,
		"status":               m.Status,
		"ai_context":           m.AIContext,
		"created_at":           m.CreatedAt,
		"updated_at":           m.UpdatedAt,
		"media_url":            nil,
		"ai_prompt_version_id": nil,
	}
	if m.AIContext == nil {
		rec["ai_context"] = map[string]any{}
	}
	if m.MediaURL != nil {
		rec["media_url"] = *m.MediaURL
	}
	if m.AIPromptVersionID != nil {
		rec["ai_prompt_version_id"] = *m.AIPromptVersionID
	}
	return rec
}
