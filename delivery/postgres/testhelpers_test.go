//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/migrations"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase = "testdb"
	testUser     = "testuser"
	testPassword = "testpass"
)

// PostgresContainer holds the container and an open connection pool.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	ConnStr   string
}

// SetupPostgresContainer starts a real PostgreSQL container, applies the
// schema, and returns the handle plus a cleanup function.
func SetupPostgresContainer(t *testing.T, ctx context.Context) (*PostgresContainer, func()) {
	t.Helper()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, migrations.Run(ctx, db))

	container := &PostgresContainer{
		Container: pgContainer,
		DB:        db,
		ConnStr:   connStr,
	}

	cleanup := func() {
		if db != nil {
			_ = db.Close()
		}
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
	}

	return container, cleanup
}

// CleanupAttempts removes all attempt rows between tests.
func CleanupAttempts(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()

	_, err := db.ExecContext(ctx, "TRUNCATE TABLE delivery_attempts")
	require.NoError(t, err)
}

// NewTestAttempt builds a valid pending attempt row.
func NewTestAttempt(subscriptionID, webhookEventID string, number int) delivery.Attempt {
	return delivery.Attempt{
		ID:             uuid.New().String(),
		SubscriptionID: subscriptionID,
		WebhookEventID: webhookEventID,
		AttemptNumber:  number,
		Success:        false,
		CreatedAt:      time.Now().UTC(),
	}
}

// InsertAgedAttempt inserts an attempt row with a backdated created_at,
// bypassing the repository so retention tests can control row age.
func InsertAgedAttempt(t *testing.T, ctx context.Context, db *sql.DB, createdAt time.Time) string {
	t.Helper()

	id := uuid.New().String()
	_, err := db.ExecContext(ctx,
		`INSERT INTO delivery_attempts (id, subscription_id, webhook_event_id, attempt_number, is_success, created_at)
		 VALUES ($1, $2, $3, 1, false, $4)`,
		id, uuid.New().String(), uuid.New().String(), createdAt)
	require.NoError(t, err)

	return id
}
