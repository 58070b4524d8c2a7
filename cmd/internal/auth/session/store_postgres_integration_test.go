package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coldeye/cmd/internal/migrate/migratetest"
)

// Integration tests are enabled when COLDEYE_DATABASE_URL is set.

func mustCreateUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool, schema, username string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO `+pgx.Identifier{schema, "sys_user"}.Sanitize()+` (username, password) VALUES ($1, 'x') RETURNING user_id`,
		username,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func TestPostgresStore_SingleSessionAndExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, schema := migratetest.Schema(t)

	store, err := NewPostgresStore(pool, schema)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	userID := mustCreateUser(ctx, t, pool, schema, "admin")
	now := time.Now().UTC().Truncate(time.Microsecond)
	clock := func() time.Time { return now }
	svc := NewService(DefaultConfig(), store, WithClock(clock))

	first, err := svc.CreateToken(ctx, userID)
	if err != nil {
		t.Fatalf("CreateToken #1: %v", err)
	}
	second, err := svc.CreateToken(ctx, userID)
	if err != nil {
		t.Fatalf("CreateToken #2: %v", err)
	}

	if _, err := svc.GetToken(ctx, first.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected superseded token to be absent, got %v", err)
	}
	got, err := svc.GetToken(ctx, second.Token)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got.UserID != userID || !got.ExpireTime.Equal(now.Add(12*time.Hour)) {
		t.Fatalf("unexpected record: %+v", got)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM `+pgx.Identifier{schema, "sys_user_token"}.Sanitize()).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 token row, got %d", rows)
	}

	if err := svc.Logout(ctx, second.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, second.Token); err != nil {
		t.Fatalf("Logout twice: %v", err)
	}
	if _, err := svc.GetToken(ctx, second.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected absent after logout, got %v", err)
	}
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, schema := migratetest.Schema(t)

	store, err := NewPostgresStore(pool, schema)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	now := time.Now().UTC()
	old := mustCreateUser(ctx, t, pool, schema, "old")
	fresh := mustCreateUser(ctx, t, pool, schema, "fresh")

	if err := store.Put(ctx, Row{UserID: old, TokenHash: HashForTest("old"), ExpireTime: now.Add(-time.Minute), UpdateTime: now}); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	if err := store.Put(ctx, Row{UserID: fresh, TokenHash: HashForTest("fresh"), ExpireTime: now.Add(time.Hour), UpdateTime: now}); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}

	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	if _, err := store.GetByHash(ctx, HashForTest("fresh")); err != nil {
		t.Fatalf("fresh row should remain: %v", err)
	}
}

func TestNewPostgresStore_RejectsNilPool(t *testing.T) {
	t.Parallel()

	if _, err := NewPostgresStore(nil, "public"); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}
