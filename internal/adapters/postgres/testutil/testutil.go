// Package testutil provides a migrated Postgres for adapter tests.
//
// TEST_DATABASE_URL selects an existing database; otherwise one postgres:16-alpine
// container is started per test binary via testcontainers and reaped when the binary exits.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	postgres "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres"
)

var (
	once    sync.Once
	pool    *pgxpool.Pool
	dsn     string
	skipMsg string
	initErr error
)

// OpenMigratedPool returns a pool on a fully migrated schema shared by the whole test binary.
// Tests must use unique identifiers since data is not reset between them.
func OpenMigratedPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres tests skipped in -short mode")
	}
	once.Do(setup)
	if skipMsg != "" {
		t.Skip(skipMsg)
	}
	if initErr != nil {
		t.Fatalf("postgres test database: %v", initErr)
	}
	return pool
}

// DatabaseURL returns the connection string behind OpenMigratedPool.
func DatabaseURL(t testing.TB) string {
	t.Helper()
	OpenMigratedPool(t)
	return dsn
}

func setup() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn = os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		url, err := startContainer(ctx)
		if err != nil {
			skipMsg = "docker unavailable for postgres tests: " + err.Error()
			return
		}
		dsn = url
	}

	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		initErr = err
		return
	}
	defer func() { _ = m.Close() }()
	if err := m.Up(); err != nil {
		initErr = err
		return
	}

	pool, initErr = postgres.NewPool(ctx, dsn, postgres.PoolOptions{MaxConns: 16})
}

func startContainer(ctx context.Context) (string, error) {
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("carpool_test"),
		tcpostgres.WithUsername("carpool"),
		tcpostgres.WithPassword("carpool"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", err
	}
	return container.ConnectionString(ctx, "sslmode=disable")
}
