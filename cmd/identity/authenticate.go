package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"coldeye/cmd/security/password"
)

// dummyPassword feeds the timing-equalization hash computed for unknown users.
const dummyPassword = "coldeye-dummy-password-for-timing"

// Authenticator verifies username/password pairs against a Store.
type Authenticator struct {
	users Store
	pw    password.Config
	log   *slog.Logger

	dummyHash string
	dummySalt string
}

// NewAuthenticator builds an Authenticator. A dummy credential in the
// configured scheme is prepared so unknown usernames cost the same as wrong passwords.
func NewAuthenticator(users Store, pw password.Config, log *slog.Logger) (*Authenticator, error) {
	if users == nil {
		return nil, errors.New("identity: nil user store")
	}
	if log == nil {
		log = slog.Default()
	}

	a := &Authenticator{users: users, pw: pw, log: log}

	switch pw.Scheme {
	case password.SchemeSaltedSHA256:
		a.dummySalt = "coldeye"
		a.dummyHash = password.SaltedSHA256Hex(dummyPassword, a.dummySalt)
	default:
		h, err := pw.HashArgon2id(dummyPassword)
		if err != nil {
			return nil, err
		}
		a.dummyHash = h
	}
	return a, nil
}

// Authenticate returns the user when password matches the stored salted hash.
//
// An unknown username and a wrong password both yield ErrInvalidCredentials.
// Store failures are returned as-is (matching ErrUnavailable).
func (a *Authenticator) Authenticate(ctx context.Context, username, plain string) (User, error) {
	const op = "identity.Authenticate"

	username = strings.TrimSpace(username)
	if username == "" || plain == "" {
		_, _ = a.pw.Check(a.dummyHash, a.dummySalt, plain)
		return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	u, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			_, _ = a.pw.Check(a.dummyHash, a.dummySalt, plain)
			return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
		}
		return User{}, err
	}

	ok, err := a.pw.Check(u.PasswordHash, u.Salt, plain)
	if err != nil {
		// A malformed stored hash can never match; report it but keep the answer generic.
		a.log.Warn("identity.authenticate.bad_stored_hash", "user_id", u.ID, "err", err)
		return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	return u, nil
}
