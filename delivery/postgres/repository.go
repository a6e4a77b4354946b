package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-dispatch/delivery"

	"github.com/lib/pq"
)

/* PostgreSQL implementation of delivery.AttemptLog
 * The UNIQUE (webhook_event_id, attempt_number) constraint is what makes
 * attempt creation idempotent under at-least-once queue redelivery
 */

const uniqueViolation = "23505"

type Repository struct {
	DB *sql.DB
}

// NewRepository wraps an existing connection pool, shared with the other
// postgres repositories of the process.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Create inserts a new attempt row with its outcome fields still null.
func (r *Repository) Create(ctx context.Context, attempt delivery.Attempt) error {
	query := `INSERT INTO delivery_attempts
		(id, subscription_id, webhook_event_id, attempt_number, status_code, response_body, error_message, is_success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(ctx, query,
		attempt.ID, attempt.SubscriptionID, attempt.WebhookEventID, attempt.AttemptNumber,
		attempt.StatusCode, attempt.ResponseBody, attempt.ErrorMessage, attempt.Success, attempt.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return delivery.ErrAttemptExists
		}
		return fmt.Errorf("inserting delivery attempt: %w", err)
	}

	return nil
}

// Finalize records the outcome on an attempt row exactly once.
func (r *Repository) Finalize(ctx context.Context, id string, outcome delivery.Outcome) error {
	query := `UPDATE delivery_attempts
		SET status_code = $2, response_body = $3, error_message = $4, is_success = $5, finalized_at = now()
		WHERE id = $1 AND finalized_at IS NULL`

	result, err := r.DB.ExecContext(ctx, query,
		id, outcome.StatusCode, outcome.ResponseBody, outcome.ErrorMessage, outcome.Success)
	if err != nil {
		return fmt.Errorf("finalizing delivery attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return delivery.ErrAlreadyFinalized
	}

	return nil
}

// Get returns an attempt by id.
func (r *Repository) Get(ctx context.Context, id string) (delivery.Attempt, error) {
	query := `SELECT id, subscription_id, webhook_event_id, attempt_number, status_code, response_body, error_message, is_success, created_at
		FROM delivery_attempts WHERE id = $1`

	var a delivery.Attempt
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.SubscriptionID, &a.WebhookEventID, &a.AttemptNumber,
		&a.StatusCode, &a.ResponseBody, &a.ErrorMessage, &a.Success, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return delivery.Attempt{}, delivery.ErrNotFound
	}
	if err != nil {
		return delivery.Attempt{}, fmt.Errorf("selecting delivery attempt: %w", err)
	}

	return a, nil
}

// ListBySubscription returns attempts for a subscription, newest first.
func (r *Repository) ListBySubscription(ctx context.Context, subscriptionID string, offset, limit int) ([]delivery.Attempt, error) {
	query := `SELECT id, subscription_id, webhook_event_id, attempt_number, status_code, response_body, error_message, is_success, created_at
		FROM delivery_attempts
		WHERE subscription_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.DB.QueryContext(ctx, query, subscriptionID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting delivery attempts: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// ListByEvent returns all attempts for one webhook event in attempt order.
func (r *Repository) ListByEvent(ctx context.Context, webhookEventID string) ([]delivery.Attempt, error) {
	query := `SELECT id, subscription_id, webhook_event_id, attempt_number, status_code, response_body, error_message, is_success, created_at
		FROM delivery_attempts
		WHERE webhook_event_id = $1
		ORDER BY attempt_number`

	rows, err := r.DB.QueryContext(ctx, query, webhookEventID)
	if err != nil {
		return nil, fmt.Errorf("selecting delivery attempts: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// CountOlderThan reports how many attempt rows are beyond the cutoff.
func (r *Repository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT count(*) FROM delivery_attempts WHERE created_at < $1", cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting delivery attempts: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes at most limit rows strictly older than the cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `DELETE FROM delivery_attempts
		WHERE id IN (
			SELECT id FROM delivery_attempts WHERE created_at < $1 LIMIT $2
		)`

	result, err := r.DB.ExecContext(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("deleting delivery attempts: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking affected rows: %w", err)
	}

	return deleted, nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *Repository) Close(ctx context.Context) error {
	return nil
}

func collectAttempts(rows *sql.Rows) ([]delivery.Attempt, error) {
	var attempts []delivery.Attempt
	for rows.Next() {
		var a delivery.Attempt
		if err := rows.Scan(
			&a.ID, &a.SubscriptionID, &a.WebhookEventID, &a.AttemptNumber,
			&a.StatusCode, &a.ResponseBody, &a.ErrorMessage, &a.Success, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery attempts: %w", err)
	}

	return attempts, nil
}
