//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/marcelsud/webhook-dispatch/migrations"
	"github.com/marcelsud/webhook-dispatch/subscription"

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

// PostgresContainer holds the container and its connection string.
type PostgresContainer struct {
	Container testcontainers.Container
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
	require.NoError(t, migrations.Run(ctx, db))
	require.NoError(t, db.Close())

	container := &PostgresContainer{
		Container: pgContainer,
		ConnStr:   connStr,
	}

	cleanup := func() {
		_ = pgContainer.Terminate(ctx)
	}

	return container, cleanup
}

// NewTestSubscription builds a valid active subscription.
func NewTestSubscription() subscription.Subscription {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return subscription.Subscription{
		ID:         uuid.New().String(),
		TargetURL:  "https://example.com/hooks",
		Secret:     "my_secure_secret_123",
		EventTypes: []string{"user.created", "user.deleted"},
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
