package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrator manages database migrations
type Migrator struct {
	db    *pgxpool.Pool
	files fs.FS
	dir   string
}

// NewMigrator creates a migrator over the SQL files shipped with the binary.
func NewMigrator(db *pgxpool.Pool) *Migrator {
	return &Migrator{db: db, files: embedded, dir: "sql"}
}

// ensureMigrationTableExists creates the migration tracking table if it doesn't exist
func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`)
	if err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

// isMigrationApplied checks if a specific migration has already been applied
func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := m.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

// Versions returns the embedded migration file names in apply order.
func (m *Migrator) Versions() ([]string, error) {
	entries, err := fs.ReadDir(m.files, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies every pending migration, each in its own transaction,
// and returns the names of the files applied.
func (m *Migrator) Migrate(ctx context.Context) ([]string, error) {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return nil, err
	}
	names, err := m.Versions()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range names {
		ok, err := m.apply(ctx, name)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, name)
		}
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, filename string) (bool, error) {
	// "001_init.sql" => "001"
	version := strings.Split(filename, "_")[0]

	done, err := m.isMigrationApplied(ctx, version)
	if err != nil {
		return false, err
	}
	if done {
		logger.Debug().Str("migration", filename).Msg("Migration already applied, skipping")
		return false, nil
	}

	content, err := fs.ReadFile(m.files, path.Join(m.dir, filename))
	if err != nil {
		return false, fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return false, fmt.Errorf("error occurred during SQL migration %s: %w", filename, err)
	}
	if err := recordMigration(ctx, tx, version); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info().Str("migration", filename).Msg("Migration applied")
	return true, nil
}

// recordMigration marks a migration as applied
func recordMigration(ctx context.Context, tx pgx.Tx, version string) error {
	_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, version, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}
