package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

/* Schema for the subscription store, event store, and attempt log
 * The UNIQUE constraint on (webhook_event_id, attempt_number) is load-
 * bearing: it is what absorbs duplicate executions of the same delivery
 * job under at-least-once queue redelivery
 */
var statements = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id          uuid PRIMARY KEY,
		target_url  text NOT NULL,
		secret      text NOT NULL,
		event_types jsonb NOT NULL,
		is_active   boolean NOT NULL DEFAULT true,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS webhook_events (
		id              uuid PRIMARY KEY,
		subscription_id uuid NOT NULL REFERENCES subscriptions (id) ON DELETE CASCADE,
		event_type      text NOT NULL,
		payload         jsonb NOT NULL,
		status          text NOT NULL DEFAULT 'pending',
		created_at      timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS delivery_attempts (
		id               uuid PRIMARY KEY,
		subscription_id  uuid NOT NULL,
		webhook_event_id uuid NOT NULL,
		attempt_number   integer NOT NULL,
		status_code      integer,
		response_body    text,
		error_message    text,
		is_success       boolean NOT NULL DEFAULT false,
		finalized_at     timestamptz,
		created_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (webhook_event_id, attempt_number)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_subscription
		ON delivery_attempts (subscription_id, created_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_created_at
		ON delivery_attempts (created_at)`,
}

// Run applies the schema. Statements are idempotent, so re-running on an
// existing database is safe.
func Run(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
