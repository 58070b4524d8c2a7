package authapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coldeye/cmd/identity/ids"
)

const (
	actionLoginSuccess = "auth.login.success"
	actionLoginFailed  = "auth.login.failed"
	actionLogout       = "auth.logout"
)

func (h *Handler) auditLoginFailed(ctx context.Context, userID *int64, ip net.IP, ua, username, reason string) {
	h.audit.Record(ctx, AuditEvent{
		Action:    actionLoginFailed,
		UserID:    userID,
		IP:        ip,
		UserAgent: ua,
		Meta: map[string]any{
			"username": username,
			"reason":   reason,
		},
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID int64, ip net.IP, ua, fingerprint string) {
	h.audit.Record(ctx, AuditEvent{
		Action:    actionLoginSuccess,
		UserID:    &userID,
		IP:        ip,
		UserAgent: ua,
		Meta:      map[string]any{"token_fp": fingerprint},
	})
}

func (h *Handler) auditLogout(ctx context.Context, userID *int64, ip net.IP, ua, fingerprint string) {
	h.audit.Record(ctx, AuditEvent{
		Action:    actionLogout,
		UserID:    userID,
		IP:        ip,
		UserAgent: ua,
		Meta:      map[string]any{"token_fp": fingerprint},
	})
}

// PostgresAuditLog appends events to sys_audit_log.
type PostgresAuditLog struct {
	pool  *pgxpool.Pool
	table string
	log   *slog.Logger
	now   func() time.Time
}

// NewPostgresAuditLog returns an AuditSink over pool. An empty schema means "public".
func NewPostgresAuditLog(pool *pgxpool.Pool, schema string, log *slog.Logger) *PostgresAuditLog {
	if schema == "" {
		schema = "public"
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAuditLog{
		pool:  pool,
		table: pgx.Identifier{schema, "sys_audit_log"}.Sanitize(),
		log:   log,
		now:   time.Now,
	}
}

// Record inserts ev. Errors are logged and swallowed.
func (a *PostgresAuditLog) Record(ctx context.Context, ev AuditEvent) {
	if a == nil || a.pool == nil {
		return
	}

	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return
	}

	now := a.now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		a.log.Error("auth.audit.id.fail", "err", err, "action", action)
		return
	}

	var ipVal any
	if ev.IP != nil {
		ipVal = ev.IP.String()
	}

	var metaVal *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO `+a.table+` (
			id, user_id, action, ip, user_agent, meta, create_time
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
	`, id, ev.UserID, action, ipVal, trimOrNil(ev.UserAgent), metaVal, now)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
