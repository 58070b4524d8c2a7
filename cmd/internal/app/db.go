package app

import (
	"context"
	"fmt"
	"time"

	"coldeye/cmd/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDBPool builds a pgxpool from cfg and validates connectivity.
// Migrations run separately (see migrateOnStart and `coldeye migrate`).
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse COLDEYE_DATABASE_URL: %w", err)
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// NewMigrator returns a goose runner bound to the configured database and schema.
func NewMigrator(cfg Config, log Logger) (migrate.Runner, error) {
	var opts []migrate.Option
	if cfg.DBSchema != "" && cfg.DBSchema != "public" {
		opts = append(opts, migrate.WithSearchPath(cfg.DBSchema))
	}
	return migrate.New(cfg.DatabaseURL, log, opts...)
}

func migrateOnStart(ctx context.Context, cfg Config, log Logger) error {
	if !cfg.MigrateOnStart {
		return nil
	}
	m, err := NewMigrator(cfg, log)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
