// Package testutil starts throwaway Postgres instances for integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/safar/inventory-store/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "postgres:16-alpine"

type Postgres struct {
	DB  *sqlx.DB
	DSN string
}

// StartPostgres runs a Postgres container for the lifetime of t. The test is
// skipped in -short mode or when no container runtime is reachable.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
	})

	return &Postgres{DB: db, DSN: dsn}
}

// NewInventoryDB is StartPostgres plus the inventory schema.
func NewInventoryDB(t *testing.T) *sqlx.DB {
	t.Helper()

	pg := StartPostgres(t)
	if err := database.EnsureTablesExist(context.Background(), pg.DB); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return pg.DB
}
