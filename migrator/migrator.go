package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"
)

// Migration constants
const (
	migrationsTableName = "schema_migrations"
	schemaHashPrefix    = "schema_only_"
)

// Migration-related errors
var (
	ErrMigrationExecution = errors.New("migration execution failed")
	ErrMigrationHash      = errors.New("migration hash failed")
)

// SchemaMigrator applies the database schema migrations.
// It doubles as a pgtestdb.Migrator for template test databases.
type SchemaMigrator struct {
	migrationsDir string
}

// NewSchemaMigrator creates a migrator that applies schema migrations only
func NewSchemaMigrator(migrationsDir string) *SchemaMigrator {
	return &SchemaMigrator{
		migrationsDir: migrationsDir,
	}
}

func (m *SchemaMigrator) Hash() (string, error) {
	sqlMigrator := sqlmigrator.New(m.source(), migrationSet())

	baseHash, err := sqlMigrator.Hash()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMigrationHash, m.migrationsDir, err)
	}

	return schemaHashPrefix + baseHash, nil
}

func (m *SchemaMigrator) Migrate(_ context.Context, db *sql.DB, _ pgtestdb.Config) error {
	_, err := applyMigrations(db, m.source())
	return err
}

func (m *SchemaMigrator) source() migrate.MigrationSource {
	return &migrate.FileMigrationSource{Dir: m.migrationsDir}
}

// ApplyMigrations applies pending migrations through the pgx pool and reports how many ran
func ApplyMigrations(pool *pgxpool.Pool, migrationsDir string) (int, error) {
	// sql-migrate needs a database/sql handle
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return applyMigrations(db, &migrate.FileMigrationSource{Dir: migrationsDir})
}

func applyMigrations(db *sql.DB, source migrate.MigrationSource) (int, error) {
	n, err := migrationSet().Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return n, nil
}

func migrationSet() *migrate.MigrationSet {
	return &migrate.MigrationSet{TableName: migrationsTableName}
}
