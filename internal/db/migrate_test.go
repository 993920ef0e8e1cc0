package db

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_LoadEmbedded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	migrations, err := NewMigrator(mock).Load()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(migrations), 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "user records", migrations[0].Description)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS user_records")
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}

	last := migrations[len(migrations)-1]
	assert.Equal(t, "user records json", last.Description)
	assert.Contains(t, last.SQL, "ALTER COLUMN data TYPE JSON")
}

func TestMigrator_LoadSkipsDownAndRejectsBadNames(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"002_second.sql":     {Data: []byte("SELECT 2")},
		"001_first_step.sql": {Data: []byte("SELECT 1")},
		"001_first_down.sql": {Data: []byte("DROP")},
		"README.md":          {Data: []byte("docs")},
	}
	migrations, err := NewMigratorFS(mock, files).Load()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "first step", migrations[0].Description)
	assert.Equal(t, 2, migrations[1].Version)

	_, err = NewMigratorFS(mock, fstest.MapFS{"initial.sql": {Data: []byte("x")}}).Load()
	assert.ErrorContains(t, err, "invalid migration filename format")
}

func TestMigrator_MigrateAppliesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a_table")},
		"002_second.sql": {Data: []byte("CREATE TABLE b_table")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_version").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE b_table").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_version").
		WithArgs(2, "second").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := NewMigratorFS(mock, files).Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_MigrateRollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{"001_first.sql": {Data: []byte("CREATE TABLE a_table")}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_version").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a_table").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := NewMigratorFS(mock, files).Migrate(context.Background())
	assert.ErrorContains(t, err, "failed to apply migration 1")
	assert.Zero(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_Status(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"001_first.sql":  {Data: []byte("x")},
		"002_second.sql": {Data: []byte("y")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_version").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(1))

	status, err := NewMigratorFS(mock, files).Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Applied)
	assert.False(t, status[1].Applied)
}
