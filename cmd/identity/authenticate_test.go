package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"coldeye/cmd/security/password"
)

func testPasswordConfig(scheme password.Scheme) password.Config {
	cfg := password.DefaultConfig()
	cfg.Scheme = scheme
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func newTestAuthenticator(t *testing.T, scheme password.Scheme) (*Authenticator, *MemoryStore, password.Config) {
	t.Helper()

	store := NewMemoryStore()
	cfg := testPasswordConfig(scheme)
	a, err := NewAuthenticator(store, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	return a, store, cfg
}

func TestAuthenticate_LegacySaltedHash(t *testing.T) {
	t.Parallel()

	a, store, _ := newTestAuthenticator(t, password.SchemeSaltedSHA256)
	ctx := context.Background()

	salt := "YzcmCZNvbXocrsz9dm8e"
	created, err := store.CreateUser(ctx, CreateUserInput{
		Username:     "admin",
		PasswordHash: password.SaltedSHA256Hex("admin123", salt),
		Salt:         salt,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := a.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != created.ID {
		t.Fatalf("user id mismatch: %d vs %d", u.ID, created.ID)
	}

	// Username lookup is case-insensitive.
	if _, err := a.Authenticate(ctx, " Admin ", "admin123"); err != nil {
		t.Fatalf("Authenticate (folded): %v", err)
	}
}

func TestAuthenticate_Argon2id(t *testing.T) {
	t.Parallel()

	a, store, cfg := newTestAuthenticator(t, password.SchemeArgon2id)
	ctx := context.Background()

	hash, salt, err := cfg.New("correct horse battery")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserInput{Username: "ops", PasswordHash: hash, Salt: salt}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := a.Authenticate(ctx, "ops", "correct horse battery"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	a, store, _ := newTestAuthenticator(t, password.SchemeSaltedSHA256)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, CreateUserInput{
		Username:     "admin",
		PasswordHash: password.SaltedSHA256Hex("admin123", "s"),
		Salt:         "s",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	cases := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown user", username: "ghost", password: "admin123"},
		{name: "wrong password", username: "admin", password: "admin124"},
		{name: "empty password", username: "admin", password: ""},
		{name: "empty username", username: "  ", password: "admin123"},
	}

	var msgs []string
	for _, tc := range cases {
		_, err := a.Authenticate(ctx, tc.username, tc.password)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", tc.name, err)
		}
		msgs = append(msgs, err.Error())
	}
	for _, m := range msgs[1:] {
		if m != msgs[0] {
			t.Fatalf("error text leaks the failure reason: %q vs %q", m, msgs[0])
		}
	}
}

type failingStore struct{ MemoryStore }

func (*failingStore) GetUserByUsername(context.Context, string) (User, error) {
	return User{}, unavailable("identity.GetUserByUsername", errors.New("connection refused"))
}

func TestAuthenticate_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	a, err := NewAuthenticator(&failingStore{}, testPasswordConfig(password.SchemeSaltedSHA256), nil)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	_, err = a.Authenticate(context.Background(), "admin", "admin123")
	if !IsUnavailable(err) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("store failure must not look like bad credentials")
	}
}

func TestMemoryStore_CreateUserConflict(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, CreateUserInput{Username: "Admin", PasswordHash: "x"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := s.CreateUser(ctx, CreateUserInput{Username: "admin", PasswordHash: "y"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err = s.CreateUser(ctx, CreateUserInput{Username: " ", PasswordHash: "y"})
	if !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	if _, err := s.GetUserByID(ctx, 99); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
