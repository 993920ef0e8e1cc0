package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ajitpratap0/moneymind/internal/db"
)

const (
	selectRecordSQL = `SELECT data FROM user_records WHERE user_id = $1`
	upsertRecordSQL = `INSERT INTO user_records (user_id, data, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
)

// PostgresBackend stores records as JSON rows in user_records. The column is
// json rather than jsonb so object key order survives a round trip.
type PostgresBackend struct {
	db db.Querier
}

// NewPostgresBackend wraps a pool. The user_records migration must have run.
func NewPostgresBackend(q db.Querier) *PostgresBackend {
	return &PostgresBackend{db: q}
}

// NewPostgresStore is a DocumentStore over a PostgresBackend
func NewPostgresStore(q db.Querier) *DocumentStore {
	return New(NewPostgresBackend(q))
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Get(ctx context.Context, userID string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(ctx, selectRecordSQL, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user record: %w", err)
	}
	return data, nil
}

func (b *PostgresBackend) Put(ctx context.Context, userID string, doc []byte) error {
	if _, err := b.db.Exec(ctx, upsertRecordSQL, userID, doc); err != nil {
		return fmt.Errorf("failed to upsert user record: %w", err)
	}
	return nil
}
