package migratortest

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/peterldowns/pgtestdb"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/brawlstats/migrator"
	"github.com/screwyprof/brawlstats/pkg/pgxdb"
)

// CreateTestDatabase creates a test database with schema migrations applied.
// Returns the connection pool ready for use; it is closed when the test ends.
func CreateTestDatabase(t *testing.T, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSchemaMigrator(migrationsDir))
}

// createTestDatabaseWithMigrator creates a test database using the provided migrator
func createTestDatabaseWithMigrator(t *testing.T, migratorInstance pgtestdb.Migrator) *pgxpool.Pool {
	t.Helper()

	// Create test database and get its config
	dbConfig := pgtestdb.Custom(t, createTestDatabaseConfig(), migratorInstance)

	// Small pool; acceptance tests run sequentially per database
	pool, err := pgxdb.NewConnection(t.Context(), dbConfig.URL(), pgxdb.WithMaxConns(2), pgxdb.WithMinConns(1))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	// Log the database URL for debugging
	t.Logf("testdbconf: %s", dbConfig.URL())

	return pool
}

// createTestDatabaseConfig creates the standard pgtestdb configuration
func createTestDatabaseConfig() pgtestdb.Config {
	return pgtestdb.Config{
		DriverName: "pgx",
		User:       "brawlstats",
		Password:   "brawlstats",
		Host:       "localhost",
		Port:       "5432",
		Options:    "sslmode=disable",
	}
}
