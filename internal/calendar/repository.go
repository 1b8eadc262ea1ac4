package calendar

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

const eventNotFoundMessage = "calendar event not found"

const eventColumns = `id, tenant_id, title, description, starts_at, ends_at, all_day, location,
	contact_id, reminder_minutes, created_at, updated_at`

// Event is the persisted calendar event row.
type Event struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Title           string
	Description     *string
	StartsAt        time.Time
	EndsAt          time.Time
	AllDay          bool
	Location        *string
	ContactID       *uuid.UUID
	ReminderMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository implements the calendar event store with PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new calendar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ dispatch.EntityStore = (*Repository)(nil)

// Create inserts a calendar event.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, rec schema.Record) (schema.Record, error) {
	query := `
		INSERT INTO calendar_events (tenant_id, title, description, starts_at, ends_at, all_day,
			location, contact_id, reminder_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + eventColumns

	row := r.pool.QueryRow(ctx, query,
		tenantID,
		rec.String("title"),
		rec.StringPtr("description"),
		rec.Time("starts_at"),
		rec.Time("ends_at"),
		rec.Bool("all_day"),
		rec.StringPtr("location"),
		rec.ID("contact_id"),
		rec.Int("reminder_minutes"),
	)

	e, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create calendar event: %w", err)
	}
	return eventRecord(e), nil
}

// Update applies the sparse patch.
func (r *Repository) Update(ctx context.Context, tenantID, id uuid.UUID, patch schema.Record) (schema.Record, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, column := range []string{
		"title", "description", "starts_at", "ends_at", "all_day",
		"location", "contact_id", "reminder_minutes",
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
		UPDATE calendar_events SET %s
		WHERE id = $%d AND tenant_id = $%d
		RETURNING `+eventColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	e, err := scanEvent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(eventNotFoundMessage)
		}
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	return eventRecord(e), nil
}

// Get retrieves an event by ID within the tenant scope.
func (r *Repository) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE id = $1 AND tenant_id = $2`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(eventNotFoundMessage)
		}
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return eventRecord(e), nil
}

// List retrieves events in chronological order, optionally bounded by a
// from/to window or scoped to one contact.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, filters dispatch.Filters) ([]schema.Record, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argIdx := 2

	if from := filters["from"]; from != "" {
		conditions = append(conditions, fmt.Sprintf("ends_at >= $%d", argIdx))
		args = append(args, from)
		argIdx++
	}
	if to := filters["to"]; to != "" {
		conditions = append(conditions, fmt.Sprintf("starts_at <= $%d", argIdx))
		args = append(args, to)
		argIdx++
	}
	if contactID := filters["contact_id"]; contactID != "" {
		conditions = append(conditions, fmt.Sprintf("contact_id = $%d", argIdx))
		args = append(args, contactID)
		argIdx++
	}

	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY starts_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	records := make([]schema.Record, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list calendar events: %w", err)
		}
		records = append(records, eventRecord(e))
	}
	return records, rows.Err()
}

// Delete removes an event.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(eventNotFoundMessage)
	}
	return nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.TenantID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.AllDay,
		&e.Location, &e.ContactID, &e.ReminderMinutes, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func eventRecord(e Event) schema.Record {
	rec := schema.Record{
		"id":               e.ID,
		"title":            e.Title,
		"starts_at":        e.StartsAt,
		"ends_at":          e.EndsAt,
		"all_day":          e.AllDay,
		"reminder_minutes": e.ReminderMinutes,
		"created_at":       e.CreatedAt,
		"updated_at":       e.UpdatedAt,
		"description":      nil,
		"location":         nil,
		"contact_id":       nil,
	}
	if e.Description != nil {
		rec["description"] = *e.Description
	}
	if e.Location != nil {
		rec["location"] = *e.Location
	}
	if e.ContactID != nil {
		rec["contact_id"] = *e.ContactID
	}
	return rec
}
