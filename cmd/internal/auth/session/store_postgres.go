package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (sys_user_token).
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

var schemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewPostgresStore creates a Postgres-backed token store. An empty schema means "public".
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	if !schemaRe.MatchString(schema) {
		return nil, fmt.Errorf("session: invalid schema identifier")
	}
	return &PostgresStore{pool: pool, schema: schema}, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "sys_user_token"}.Sanitize()
}

// Put upserts the user's token row. The previous token hash is overwritten in the same statement.
func (s *PostgresStore) Put(ctx context.Context, row Row) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.table()+` (user_id, token_hash, expire_time, update_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expire_time = EXCLUDED.expire_time,
		    update_time = EXCLUDED.update_time
	`, row.UserID, row.TokenHash, row.ExpireTime, row.UpdateTime)
	return storeErr("session.postgres.put", err)
}

// GetByHash loads a token row by its hash.
func (s *PostgresStore) GetByHash(ctx context.Context, tokenHash string) (Row, error) {
	var row Row

	err := s.pool.QueryRow(ctx, `
		SELECT user_id, token_hash, expire_time, update_time
		FROM `+s.table()+`
		WHERE token_hash = $1
	`, tokenHash).Scan(
		&row.UserID,
		&row.TokenHash,
		&row.ExpireTime,
		&row.UpdateTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrTokenNotFound
	}
	if err != nil {
		return Row{}, storeErr("session.postgres.get", err)
	}

	return row, nil
}

// DeleteByHash removes the row holding tokenHash, if any.
func (s *PostgresStore) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE token_hash = $1`, tokenHash)
	return storeErr("session.postgres.delete", err)
}

// DeleteExpired removes rows whose expire_time is before now.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE expire_time < $1`, now)
	if err != nil {
		return 0, storeErr("session.postgres.delete_expired", err)
	}
	return tag.RowsAffected(), nil
}
