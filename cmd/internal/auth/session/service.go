package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"coldeye/cmd/security/token"
)

// Service implements the session operations: issue, look up, and invalidate
// opaque login tokens.
//
// It keeps no state of its own; every call goes to the Store.
type Service struct {
	cfg     Config
	store   Store
	hasher  token.Hasher
	now     func() time.Time
	metrics *Metrics
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHasher sets the token hasher. The default is unkeyed SHA-256.
func WithHasher(h token.Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a Service with the provided configuration and store.
func NewService(cfg Config, store Store, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		store:  store,
		hasher: token.NewHasher(nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

// CreateToken issues a fresh token for userID, replacing any previous one.
//
// The plain token is returned to the caller only; the store receives its hash.
func (s *Service) CreateToken(ctx context.Context, userID int64) (Token, error) {
	plain, err := token.Generate(s.cfg.TokenBytes)
	if err != nil {
		return Token{}, err
	}

	now := s.now()
	row := Row{
		UserID:     userID,
		TokenHash:  s.hasher.Hex(plain),
		ExpireTime: now.Add(s.cfg.TTL),
		UpdateTime: now,
	}
	if err := s.store.Put(ctx, row); err != nil {
		return Token{}, err
	}

	s.metrics.tokenIssued()
	return Token{
		UserID:     userID,
		Token:      plain,
		ExpireTime: row.ExpireTime,
		UpdateTime: row.UpdateTime,
	}, nil
}

// GetToken resolves a plain token. Absent and expired tokens both return ErrTokenNotFound.
// Lookups never extend the expiry.
func (s *Service) GetToken(ctx context.Context, plain string) (Token, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		s.metrics.lookup("missing")
		return Token{}, ErrTokenNotFound
	}

	row, err := s.store.GetByHash(ctx, s.hasher.Hex(plain))
	if errors.Is(err, ErrTokenNotFound) {
		s.metrics.lookup("missing")
		return Token{}, ErrTokenNotFound
	}
	if err != nil {
		s.metrics.lookup("error")
		return Token{}, err
	}
	if row.Expired(s.now()) {
		s.metrics.lookup("expired")
		return Token{}, ErrTokenNotFound
	}

	s.metrics.lookup("ok")
	return Token{
		UserID:     row.UserID,
		Token:      plain,
		ExpireTime: row.ExpireTime,
		UpdateTime: row.UpdateTime,
	}, nil
}

// Logout deletes the token if present. Calling it twice is a no-op.
func (s *Service) Logout(ctx context.Context, plain string) error {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil
	}
	return s.store.DeleteByHash(ctx, s.hasher.Hex(plain))
}

// PurgeExpired removes expired rows from the store.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.purgedRows(n)
	return n, nil
}

// Fingerprint returns a short, non-reversible prefix of the token hash for logs.
func (s *Service) Fingerprint(plain string) string {
	h := s.hasher.Hex(strings.TrimSpace(plain))
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
