package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/josh-kwaku/bank-ledger/internal/repository"
)

// ledgerTables are the tables the schema migration must leave behind.
var ledgerTables = []string{"users", "accounts", "transfers", "boletos", "idempotency_cache"}

// SetupTestDB starts a throwaway Postgres, opens it through the same pool
// constructor the API uses and applies every migrations/*.up.sql file from
// the module root.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ledger_test"),
		postgres.WithUsername("ledger"),
		postgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	// Concurrency tests hold several row locks at once.
	db, err := repository.NewPostgresDB(ctx, connStr, repository.PoolConfig{
		MaxOpenConns:     32,
		MaxIdleConns:     8,
		ConnMaxLifetimeS: 300,
		ConnMaxIdleTimeS: 60,
		ConnectAttempts:  5,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dir, err := migrationsDir()
	if err != nil {
		t.Fatalf("locate migrations: %v", err)
	}
	if err := applyMigrations(ctx, db, dir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if err := checkLedgerSchema(ctx, db); err != nil {
		t.Fatalf("check schema: %v", err)
	}

	return db
}

func applyMigrations(ctx context.Context, db *sql.DB, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no up migrations in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(f), err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func checkLedgerSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range ledgerTables {
		var found bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
			table,
		).Scan(&found)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", table, err)
		}
		if !found {
			return fmt.Errorf("table %s missing after migrations", table)
		}
	}
	return nil
}

// migrationsDir returns <module root>/migrations, where the module root is
// the nearest ancestor of the test's working directory holding go.mod.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}
