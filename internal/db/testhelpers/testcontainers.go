// Package testhelpers starts a throwaway PostgreSQL with the user_records schema
package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ajitpratap0/moneymind/internal/db"
)

const postgresImage = "postgres:16-alpine"

// Postgres is a migrated database living for the duration of one test
type Postgres struct {
	DB  *db.DB
	DSN string
}

// StartPostgres runs the container, connects and applies every migration.
// Teardown is registered with t.Cleanup.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("moneymind_test"),
		postgres.WithUsername("moneymind"),
		postgres.WithPassword("moneymind"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := db.New(ctx, db.PoolConfig{URL: dsn, MaxConns: 4, MinConns: 1})
	require.NoError(t, err, "connect to postgres container")
	t.Cleanup(database.Close)

	applied, err := db.NewMigrator(database.Pool()).Migrate(ctx)
	require.NoError(t, err, "migrate")
	require.Positive(t, applied)

	return &Postgres{DB: database, DSN: dsn}
}

// CountUsers returns how many user records are stored
func (p *Postgres) CountUsers(t *testing.T) int {
	t.Helper()
	var n int
	err := p.DB.Pool().QueryRow(context.Background(), "SELECT COUNT(*) FROM user_records").Scan(&n)
	require.NoError(t, err)
	return n
}

// Reset empties user_records between subtests
func (p *Postgres) Reset(t *testing.T) {
	t.Helper()
	_, err := p.DB.Pool().Exec(context.Background(), "TRUNCATE TABLE user_records")
	require.NoError(t, err)
}
