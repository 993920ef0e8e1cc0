package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migration is one numbered schema change
type Migration struct {
	Version     int
	Description string
	SQL         string
	Filename    string
}

// MigrationStatus pairs a migration with whether it has been applied
type MigrationStatus struct {
	Migration
	Applied bool
}

// Migrator applies the embedded migrations in version order
type Migrator struct {
	db    Querier
	files fs.FS
	log   zerolog.Logger
}

// NewMigrator creates a migration runner over the embedded migrations
func NewMigrator(db Querier) *Migrator {
	sub, _ := fs.Sub(embedded, "migrations")
	return NewMigratorFS(db, sub)
}

// NewMigratorFS creates a migration runner reading NNN_description.sql files from files
func NewMigratorFS(db Querier, files fs.FS) *Migrator {
	return &Migrator{
		db:    db,
		files: files,
		log:   log.With().Str("component", "migrator").Logger(),
	}
}

func (m *Migrator) ensureSchemaVersionTable(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW(),
			description TEXT
		);
	`)
	return err
}

func (m *Migrator) currentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// Load reads and orders the available migrations
func (m *Migrator) Load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") || strings.HasSuffix(name, "_down.sql") {
			continue
		}

		var version int
		var description string
		if _, err := fmt.Sscanf(name, "%d_%s", &version, &description); err != nil {
			return nil, fmt.Errorf("invalid migration filename format: %s (expected: NNN_description.sql)", name)
		}

		content, err := fs.ReadFile(m.files, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(strings.TrimSuffix(description, ".sql"), "_", " "),
			SQL:         string(content),
			Filename:    name,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies every pending migration and returns how many ran
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureSchemaVersionTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return 0, err
	}

	migrations, err := m.Load()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
		applied++
	}

	if applied == 0 {
		m.log.Info().Int("version", current).Msg("Database is up to date")
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	m.log.Info().Int("version", mig.Version).Str("description", mig.Description).Msg("Applying migration")

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO schema_version (version, description) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING",
		mig.Version, mig.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Status lists the available migrations and whether each has been applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureSchemaVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return nil, err
	}

	migrations, err := m.Load()
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		out = append(out, MigrationStatus{Migration: mig, Applied: mig.Version <= current})
	}
	return out, nil
}
