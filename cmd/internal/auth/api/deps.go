package authapi

import (
	"context"
	"net"

	"coldeye/cmd/identity"
)

// Authenticator checks a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (identity.User, error)
}

// UserLookup loads the profile behind a session.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID int64) (identity.User, error)
}

// CompanyLookup resolves a company id to its display name.
type CompanyLookup interface {
	CompanyName(ctx context.Context, companyID int64) (string, error)
}

// AuditEvent is one security-relevant action.
type AuditEvent struct {
	Action    string
	UserID    *int64
	IP        net.IP
	UserAgent string
	Meta      map[string]any
}

// AuditSink records audit events. Implementations must not block the request on failure.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// NoopAuditSink discards events. Used when Postgres is not configured.
type NoopAuditSink struct{}

func (NoopAuditSink) Record(context.Context, AuditEvent) {}
