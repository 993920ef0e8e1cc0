//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/moneymind/internal/db/testhelpers"
	"github.com/ajitpratap0/moneymind/internal/user"
)

func TestPostgresStoreWithTestcontainers(t *testing.T) {
	pg := testhelpers.StartPostgres(t)
	s := NewPostgresStore(pg.DB.Pool())
	ctx := context.Background()

	t.Run("default created on first load", func(t *testing.T) {
		rec := s.Load(ctx, "pg-user")
		assert.Equal(t, "pg-user", rec.UserID)
		assert.Equal(t, 1, pg.CountUsers(t))
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		rec := s.Load(ctx, "pg-user")
		rec.SetParameter(user.IncomeSource, "Business")
		require.True(t, s.Save(ctx, "pg-user", rec))

		got := s.Load(ctx, "pg-user")
		v, ok := got.Profile.RiskParameters.Get(user.IncomeSource)
		require.True(t, ok)
		assert.Equal(t, "Business", v)
		assert.Equal(t, 1, pg.CountUsers(t))
	})

	t.Run("portfolio holdings keep their order", func(t *testing.T) {
		require.True(t, s.Save(ctx, "pg-portfolio", sampleRecord("pg-portfolio")))
		assertAllocationOrder(t, s.Load(ctx, "pg-portfolio"))

		var colType string
		err := pg.DB.Pool().QueryRow(ctx,
			`SELECT data_type FROM information_schema.columns WHERE table_name = 'user_records' AND column_name = 'data'`,
		).Scan(&colType)
		require.NoError(t, err)
		assert.Equal(t, "json", colType)
	})

	t.Run("reset", func(t *testing.T) {
		pg.Reset(t)
		assert.Empty(t, s.Load(ctx, "fresh").Profile.RiskParameters)
		assert.Equal(t, 1, pg.CountUsers(t))
	})
}
