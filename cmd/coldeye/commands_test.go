package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"coldeye/cmd/identity"
	"coldeye/cmd/internal/app"
	"coldeye/cmd/internal/migrate"
	"coldeye/cmd/security/password"

	"github.com/urfave/cli/v2"
)

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("COLDEYE_HTTP_ADDR", "127.0.0.1:1")
	t.Setenv("COLDEYE_LOG_FORMAT", "json")
	t.Setenv("COLDEYE_TOKEN_STORE", "")

	var got app.Config
	probe := &cli.App{
		Flags: globalFlags(),
		Commands: []*cli.Command{{
			Name:  "probe",
			Flags: serveCommand().Flags,
			Action: func(c *cli.Context) error {
				got = loadConfig(c)
				return nil
			},
		}},
	}

	args := []string{"coldeye", "--log-format", "pretty", "probe", "--addr", ":9999", "--token-store", "REDIS"}
	if err := probe.Run(args); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got.HTTPAddr != ":9999" {
		t.Fatalf("HTTPAddr=%q", got.HTTPAddr)
	}
	if got.LogFormat != "pretty" {
		t.Fatalf("LogFormat=%q", got.LogFormat)
	}
	if got.TokenStore != app.TokenStoreRedis {
		t.Fatalf("TokenStore=%q", got.TokenStore)
	}
}

func TestLoadConfig_EnvWhenFlagUnset(t *testing.T) {
	t.Setenv("COLDEYE_HTTP_ADDR", "127.0.0.1:7000")

	var got app.Config
	probe := &cli.App{
		Flags: globalFlags(),
		Commands: []*cli.Command{{
			Name:  "probe",
			Flags: serveCommand().Flags,
			Action: func(c *cli.Context) error {
				got = loadConfig(c)
				return nil
			},
		}},
	}
	if err := probe.Run([]string{"coldeye", "probe"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.HTTPAddr != "127.0.0.1:7000" {
		t.Fatalf("HTTPAddr=%q", got.HTTPAddr)
	}
}

func TestDownTarget(t *testing.T) {
	t.Parallel()

	cases := []struct {
		args []string
		want int64
	}{
		{args: []string{"coldeye", "down"}, want: migrate.LatestOnly},
		{args: []string{"coldeye", "down", "--to", "0"}, want: 0},
		{args: []string{"coldeye", "down", "--to", "2"}, want: 2},
	}

	for _, tc := range cases {
		var got int64 = 99
		down := migrateCommand().Subcommands[2]
		down.Action = func(c *cli.Context) error {
			got = downTarget(c)
			return nil
		}
		if err := (&cli.App{Commands: []*cli.Command{down}}).Run(tc.args); err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("%v: target=%d want=%d", tc.args, got, tc.want)
		}
	}
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	t.Setenv("COLDEYE_DATABASE_URL", "")

	err := newCLI().Run([]string{"coldeye", "migrate", "up"})
	if err == nil || !strings.Contains(err.Error(), "COLDEYE_DATABASE_URL") {
		t.Fatalf("expected database error, got %v", err)
	}
}

func TestAddUser(t *testing.T) {
	t.Parallel()

	pw := password.DefaultConfig()
	pw.Scheme = password.SchemeSaltedSHA256
	users := identity.NewMemoryStore()
	companyID := int64(7)

	u, err := addUser(context.Background(), users, pw, newUserInput{
		Username:  "Ops",
		Password:  "long-enough-secret",
		Name:      "Operations",
		CompanyID: &companyID,
	})
	if err != nil {
		t.Fatalf("addUser: %v", err)
	}
	if u.ID == 0 || u.Salt == "" || u.PasswordHash == "long-enough-secret" {
		t.Fatalf("unexpected user: %+v", u)
	}

	got, err := users.GetUserByUsername(context.Background(), "ops")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.CompanyID == nil || *got.CompanyID != companyID {
		t.Fatalf("company not stored: %+v", got.CompanyID)
	}
	ok, err := pw.Check(got.PasswordHash, got.Salt, "long-enough-secret")
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestAddUser_RejectsPolicyViolation(t *testing.T) {
	t.Parallel()

	_, err := addUser(context.Background(), identity.NewMemoryStore(), password.DefaultConfig(), newUserInput{
		Username: "ops",
		Password: "short",
	})
	if !errors.Is(err, password.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestAddUser_DuplicateUsername(t *testing.T) {
	t.Parallel()

	pw := password.DefaultConfig()
	pw.Scheme = password.SchemeSaltedSHA256
	users := identity.NewMemoryStore()
	in := newUserInput{Username: "ops", Password: "long-enough-secret"}

	if _, err := addUser(context.Background(), users, pw, in); err != nil {
		t.Fatalf("first add: %v", err)
	}
	in.Username = "OPS"
	if _, err := addUser(context.Background(), users, pw, in); !identity.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
