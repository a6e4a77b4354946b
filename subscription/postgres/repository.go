package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-dispatch/subscription"

	_ "github.com/lib/pq" // PostgreSQL driver
)

/* PostgreSQL implementation of subscription.Repository
 * Event types are stored as a JSONB array so the allowed-types set travels
 * with the row
 */

type Repository struct {
	DB *sql.DB
}

// NewRepository opens a connection pool with the default sizing (25, 5, 5 min).
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig opens a connection pool with custom sizing.
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{DB: db}, nil
}

// Create inserts a new subscription row.
func (r *Repository) Create(ctx context.Context, sub subscription.Subscription) error {
	eventTypes, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return fmt.Errorf("marshaling event types: %w", err)
	}

	query := `INSERT INTO subscriptions (id, target_url, secret, event_types, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.DB.ExecContext(ctx, query,
		sub.ID, sub.TargetURL, sub.Secret, eventTypes, sub.Active, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}

	return nil
}

// Get returns the subscription regardless of its active flag.
func (r *Repository) Get(ctx context.Context, id string) (subscription.Subscription, error) {
	query := `SELECT id, target_url, secret, event_types, is_active, created_at, updated_at
		FROM subscriptions WHERE id = $1`

	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// GetActive returns the subscription only if its active flag is set.
func (r *Repository) GetActive(ctx context.Context, id string) (subscription.Subscription, error) {
	query := `SELECT id, target_url, secret, event_types, is_active, created_at, updated_at
		FROM subscriptions WHERE id = $1 AND is_active = true`

	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// List returns all subscriptions ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]subscription.Subscription, error) {
	query := `SELECT id, target_url, secret, event_types, is_active, created_at, updated_at
		FROM subscriptions ORDER BY created_at`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selecting subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []subscription.Subscription
	for rows.Next() {
		sub, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriptions: %w", err)
	}

	return subs, nil
}

// Update rewrites the mutable columns of an existing row.
func (r *Repository) Update(ctx context.Context, sub subscription.Subscription) error {
	eventTypes, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return fmt.Errorf("marshaling event types: %w", err)
	}

	query := `UPDATE subscriptions
		SET target_url = $2, secret = $3, event_types = $4, is_active = $5, updated_at = $6
		WHERE id = $1`

	result, err := r.DB.ExecContext(ctx, query,
		sub.ID, sub.TargetURL, sub.Secret, eventTypes, sub.Active, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return subscription.ErrNotFound
	}

	return nil
}

// Delete removes a subscription row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return subscription.ErrNotFound
	}

	return nil
}

// Close closes the connection pool.
func (r *Repository) Close(ctx context.Context) error {
	return r.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOne(row *sql.Row) (subscription.Subscription, error) {
	sub, err := scanRow(row)
	if err == sql.ErrNoRows {
		return subscription.Subscription{}, subscription.ErrNotFound
	}
	if err != nil {
		return subscription.Subscription{}, err
	}
	return sub, nil
}

func scanRow(s scanner) (subscription.Subscription, error) {
	var sub subscription.Subscription
	var eventTypes []byte

	err := s.Scan(&sub.ID, &sub.TargetURL, &sub.Secret, &eventTypes, &sub.Active, &sub.CreatedAt, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return subscription.Subscription{}, err
	}
	if err != nil {
		return subscription.Subscription{}, fmt.Errorf("scanning subscription: %w", err)
	}

	if err := json.Unmarshal(eventTypes, &sub.EventTypes); err != nil {
		return subscription.Subscription{}, fmt.Errorf("unmarshaling event types: %w", err)
	}

	return sub, nil
}
