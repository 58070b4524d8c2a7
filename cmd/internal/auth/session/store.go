package session

import (
	"context"
	"time"
)

// Token is a session token as seen by callers: the plain token plus its row data.
type Token struct {
	UserID     int64
	Token      string
	ExpireTime time.Time
	UpdateTime time.Time
}

// Row mirrors a sys_user_token row. TokenHash is the storage key; the plain
// token is never persisted.
type Row struct {
	UserID     int64
	TokenHash  string
	ExpireTime time.Time
	UpdateTime time.Time
}

// Expired reports whether the row is past its expiry at now.
func (r Row) Expired(now time.Time) bool {
	return now.After(r.ExpireTime)
}

// Store abstracts token persistence.
//
// All operations are single-row atomic. Implementations return
// ErrTokenNotFound for missing rows and wrap backend failures in StoreError.
type Store interface {
	// Put upserts the row keyed by UserID, replacing any previous token of that user.
	Put(ctx context.Context, row Row) error

	// GetByHash loads the row whose token hashes to tokenHash. Expiry is not checked here.
	GetByHash(ctx context.Context, tokenHash string) (Row, error)

	// DeleteByHash removes the row if present. Missing rows are not an error.
	DeleteByHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes rows that expired before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
