package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	testcontainers "github.com/testcontainers/testcontainers-go"
)

// TestMigrationRunnerIntegration runs the embedded warehouse schema
// migrations against a real PostgreSQL container end to end: up, status,
// version, down.
func TestMigrationRunnerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	config := &Config{
		DatabaseURL:    connStr,
		MigrationTable: "schema_migrations",
	}
	require.NoError(t, config.Validate())

	runner, err := NewMigrationRunner(config)
	require.NoError(t, err)

	defer runner.Close()

	require.NoError(t, runner.Up())
	require.NoError(t, runner.Status())
	require.NoError(t, runner.Version())

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	defer db.Close()

	for _, table := range []string{"products", "warehouses", "warehouse_stocks", "movements", "movement_events"} {
		var exists bool
		err := db.QueryRow(
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)", table,
		).Scan(&exists)
		require.NoError(t, err)
		require.Truef(t, exists, "expected table %s to exist after migration up", table)
	}

	require.NoError(t, runner.Down())

	var stockTableExists bool
	err = db.QueryRow(
		"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'warehouse_stocks')",
	).Scan(&stockTableExists)
	require.NoError(t, err)
	require.False(t, stockTableExists, "expected warehouse_stocks to be dropped after migration down")
}
