// Package migratetest provisions throwaway Postgres schemas for integration tests.
package migratetest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"coldeye/cmd/internal/migrate"
)

// EnvDatabaseURL enables Postgres integration tests when set.
const EnvDatabaseURL = "COLDEYE_DATABASE_URL"

// goose keeps package-level state; serialize runs within one test binary.
var gooseMu sync.Mutex

// Schema creates a fresh schema, migrates it, and drops it on cleanup.
// The test is skipped when COLDEYE_DATABASE_URL is unset or unreachable.
func Schema(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if dsn == "" {
		t.Skip(EnvDatabaseURL + " is not set; skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres unavailable: %v", err)
	}

	schema := "t_" + strings.ToLower(ulid.Make().String())
	if _, err := pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		pool.Close()
		t.Fatalf("create schema: %v", err)
	}

	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		_, _ = pool.Exec(cctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		pool.Close()
	})

	r, err := migrate.New(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)), migrate.WithSearchPath(schema))
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}

	gooseMu.Lock()
	err = r.Up(ctx)
	gooseMu.Unlock()
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	return pool, schema
}
