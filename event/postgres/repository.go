package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcelsud/webhook-dispatch/event"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgreSQL implementation of event.Repository.

type Repository struct {
	DB *sql.DB
}

// NewRepository wraps an existing connection pool, shared with the other
// postgres repositories of the process.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Create inserts a new event row.
func (r *Repository) Create(ctx context.Context, ev event.Event) error {
	query := `INSERT INTO webhook_events (id, subscription_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.DB.ExecContext(ctx, query,
		ev.ID, ev.SubscriptionID, ev.EventType, []byte(ev.Payload), ev.Status.String(), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// Get returns an event by id.
func (r *Repository) Get(ctx context.Context, id string) (event.Event, error) {
	query := `SELECT id, subscription_id, event_type, payload, status, created_at
		FROM webhook_events WHERE id = $1`

	var ev event.Event
	var status string
	var payload []byte

	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&ev.ID, &ev.SubscriptionID, &ev.EventType, &payload, &status, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return event.Event{}, event.ErrNotFound
	}
	if err != nil {
		return event.Event{}, fmt.Errorf("selecting event: %w", err)
	}

	ev.Payload = payload
	ev.Status = event.NewStatus(status)

	return ev, nil
}

// UpdateStatus records the informational delivery outcome.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status event.Status) error {
	if err := status.Validate(); err != nil {
		return fmt.Errorf("validating status: %w", err)
	}

	result, err := r.DB.ExecContext(ctx,
		"UPDATE webhook_events SET status = $2 WHERE id = $1", id, status.String())
	if err != nil {
		return fmt.Errorf("updating event status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return event.ErrNotFound
	}

	return nil
}

// CountByStatus returns event counts grouped by lifecycle status.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT status, count(*) FROM webhook_events GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting events by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return counts, nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *Repository) Close(ctx context.Context) error {
	return nil
}
