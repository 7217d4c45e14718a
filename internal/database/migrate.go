package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded SQL migrations
type Migrator struct {
	pool   *pgxpool.Pool
	fsys   fs.FS
	logger *log.Logger
}

// Migration is one versioned migration file pair
type Migration struct {
	Version string
	Up      string
	Down    string
}

// NewMigrator creates a new migrator
func NewMigrator(pool *pgxpool.Pool, logger *log.Logger) *Migrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Migrator{pool: pool, fsys: migrationsFS, logger: logger}
}

// LoadMigrations lists the migrations in dir ordered by version. Files are
// named "<version>_<name>.up.sql" and "<version>_<name>.down.sql".
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix", name)
		}
		m, exists := byVersion[version]
		if !exists {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			m.Up = dir + "/" + name
		case strings.HasSuffix(name, ".down.sql"):
			m.Down = dir + "/" + name
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up file", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up runs all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := LoadMigrations(m.fsys, "migrations")
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		applied, err := m.isMigrationApplied(ctx, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			m.logger.Printf("Migration %s already applied, skipping", migration.Up)
			continue
		}

		content, err := fs.ReadFile(m.fsys, migration.Up)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migration.Up, err)
		}

		m.logger.Printf("Applying migration: %s", migration.Up)
		if err := m.apply(ctx, string(content), func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version)
			return err
		}); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Up, err)
		}
	}

	m.logger.Println("All migrations applied")
	return nil
}

// Down rolls back the last applied migration
func (m *Migrator) Down(ctx context.Context) error {
	var version string
	err := m.pool.QueryRow(ctx, `
		SELECT version FROM schema_migrations
		ORDER BY version DESC
		LIMIT 1
	`).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		m.logger.Println("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	migrations, err := LoadMigrations(m.fsys, "migrations")
	if err != nil {
		return err
	}

	var downFile string
	for _, migration := range migrations {
		if migration.Version == version {
			downFile = migration.Down
			break
		}
	}
	if downFile == "" {
		return fmt.Errorf("down migration file not found for version %s", version)
	}

	content, err := fs.ReadFile(m.fsys, downFile)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", downFile, err)
	}

	m.logger.Printf("Rolling back migration: %s", downFile)
	return m.apply(ctx, string(content), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", version)
		return err
	})
}

// apply runs a migration script and its bookkeeping in one transaction
func (m *Migrator) apply(ctx context.Context, script string, record func(pgx.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, script); err != nil {
		return err
	}
	if err := record(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW() NOT NULL
		)
	`)
	return err
}

func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := m.pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
