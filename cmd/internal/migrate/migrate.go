// Package migrate applies the embedded Postgres schema with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

const migrationsDir = "sql"

// Runner wraps goose over the embedded migrations.
type Runner struct {
	dsn    string
	schema string
	log    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSearchPath runs migrations with search_path set to schema, so every
// table (and the goose version table) lands there. Used by integration tests.
func WithSearchPath(schema string) Option {
	return func(r *Runner) { r.schema = schema }
}

// New returns a migration runner for dsn.
func New(dsn string, log *slog.Logger, opts ...Option) (Runner, error) {
	if dsn == "" {
		return Runner{}, errors.New("migrate: empty database dsn")
	}
	if log == nil {
		log = slog.Default()
	}
	r := Runner{dsn: dsn, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(&r)
		}
	}
	return r, nil
}

// Up applies pending migrations.
func (r Runner) Up(ctx context.Context) error {
	return r.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		r.log.Info("migrate.up.start", "schema", r.schemaOrDefault())
		if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.log.Info("migrate.up.done")
		return nil
	})
}

// Status logs applied and pending migrations.
func (r Runner) Status(ctx context.Context) error {
	return r.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		if err := goose.StatusContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

// LatestOnly makes Down roll back just the most recent migration.
const LatestOnly int64 = -1

// Down rolls back to target (0 rolls back everything), or only the latest
// migration when target is LatestOnly.
func (r Runner) Down(ctx context.Context, target int64) error {
	return r.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		if target >= 0 {
			r.log.Info("migrate.down_to", "target", target)
			if err := goose.DownToContext(ctx, db, migrationsDir, target); err != nil {
				return fmt.Errorf("rollback to version %d: %w", target, err)
			}
			return nil
		}
		r.log.Info("migrate.down")
		if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

func (r Runner) schemaOrDefault() string {
	if r.schema == "" {
		return "public"
	}
	return r.schema
}

func (r Runner) withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	dsn, err := withSearchPath(r.dsn, r.schema)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := db.PingContext(runCtx); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: r.log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	return fn(runCtx, db)
}

// withSearchPath appends a search_path runtime parameter to a URL-form DSN.
func withSearchPath(dsn, schema string) (string, error) {
	if schema == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("migrate: search_path requires a URL dsn")
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type gooseLogger struct{ log *slog.Logger }

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error("migrate.goose", "msg", fmt.Sprintf(format, v...))
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Info("migrate.goose", "msg", fmt.Sprintf(format, v...))
}
