// Package testutil opens a migrated Postgres pool for adapter integration tests.
// Tests skip when TEST_DATABASE_URL is not set.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// OpenMigratedPool returns a pool against TEST_DATABASE_URL with every migration
// applied. Migrations run once per test binary; the pool is closed on cleanup.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	ctx := context.Background()

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, dsn, logging.Discard())
	})
	if migrateErr != nil {
		t.Fatalf("testutil.OpenMigratedPool: migrate: %v", migrateErr)
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{MaxConns: 4})
	if err != nil {
		t.Fatalf("testutil.OpenMigratedPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
