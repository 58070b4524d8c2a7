package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coldeye/cmd/identity"
	"coldeye/cmd/internal/app"
	"coldeye/cmd/internal/company"
	"coldeye/cmd/internal/migrate"
	"coldeye/cmd/security/password"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func newCLI() *cli.App {
	return &cli.App{
		Name:    "coldeye",
		Usage:   "coldeye admin auth service",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			userCommand(),
			companyCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Postgres DSN; empty runs with in-memory stores",
			EnvVars: []string{"COLDEYE_DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "db-schema",
			Usage:   "Postgres schema holding the sys_* tables",
			EnvVars: []string{"COLDEYE_DB_SCHEMA"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"COLDEYE_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "json or pretty",
			EnvVars: []string{"COLDEYE_LOG_FORMAT"},
		},
	}
}

// loadConfig reads the environment, then applies flags the user set explicitly.
func loadConfig(c *cli.Context) app.Config {
	cfg := app.LoadConfig()

	if c.IsSet("database-url") {
		cfg.DatabaseURL = c.String("database-url")
	}
	if c.IsSet("db-schema") {
		cfg.DBSchema = c.String("db-schema")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("addr") {
		cfg.HTTPAddr = c.String("addr")
	}
	if c.IsSet("token-store") {
		cfg.TokenStore = strings.ToLower(c.String("token-store"))
	}
	if c.IsSet("migrate") {
		cfg.MigrateOnStart = c.Bool("migrate")
	}
	return cfg
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "listen address",
				EnvVars: []string{"COLDEYE_HTTP_ADDR"},
			},
			&cli.StringFlag{
				Name:    "token-store",
				Usage:   "postgres, redis or memory",
				EnvVars: []string{"COLDEYE_TOKEN_STORE"},
			},
			&cli.BoolFlag{
				Name:    "migrate",
				Usage:   "apply pending migrations before serving",
				EnvVars: []string{"COLDEYE_MIGRATE_ON_START"},
			},
		},
		Action: func(c *cli.Context) error {
			return app.Run(c.Context, loadConfig(c))
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the Postgres schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(c *cli.Context) error {
					return withMigrator(c, func(ctx context.Context, m migrator) error { return m.Up(ctx) })
				},
			},
			{
				Name:  "status",
				Usage: "Print applied and pending migrations",
				Action: func(c *cli.Context) error {
					return withMigrator(c, func(ctx context.Context, m migrator) error { return m.Status(ctx) })
				},
			},
			{
				Name:  "down",
				Usage: "Roll back to a target version",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "to",
						Usage: "target version; 0 rolls back everything, omitted rolls back the latest migration only",
					},
				},
				Action: func(c *cli.Context) error {
					target := downTarget(c)
					return withMigrator(c, func(ctx context.Context, m migrator) error { return m.Down(ctx, target) })
				},
			},
		},
	}
}

func downTarget(c *cli.Context) int64 {
	if !c.IsSet("to") {
		return migrate.LatestOnly
	}
	return c.Int64("to")
}

type migrator interface {
	Up(ctx context.Context) error
	Status(ctx context.Context) error
	Down(ctx context.Context, target int64) error
}

func withMigrator(c *cli.Context, fn func(context.Context, migrator) error) error {
	cfg := loadConfig(c)
	if !cfg.DBEnabled() {
		return errors.New("migrate: COLDEYE_DATABASE_URL (or --database-url) is required")
	}
	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)

	m, err := app.NewMigrator(cfg, log)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
	defer cancel()
	return fn(ctx, m)
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage admin accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Provision an admin account in Postgres",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "plain password; hashed with COLDEYE_PASSWORD_SCHEME",
						EnvVars:  []string{"COLDEYE_NEW_USER_PASSWORD"},
						Required: true,
					},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "phone"},
					&cli.Int64Flag{Name: "company-id", Usage: "sys_company.company_id to link"},
				},
				Action: userAdd,
			},
		},
	}
}

func userAdd(c *cli.Context) error {
	cfg := loadConfig(c)
	if !cfg.DBEnabled() {
		return errors.New("user add: COLDEYE_DATABASE_URL (or --database-url) is required")
	}
	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)

	pw, err := password.FromEnv()
	if err != nil {
		return err
	}

	pool, err := app.NewDBPool(c.Context, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		return err
	}

	in := newUserInput{
		Username: c.String("username"),
		Password: c.String("password"),
		Name:     c.String("name"),
		Phone:    c.String("phone"),
	}
	if c.IsSet("company-id") {
		id := c.Int64("company-id")
		in.CompanyID = &id
	}

	u, err := addUser(c.Context, users, pw, in)
	if err != nil {
		return err
	}
	log.Info("identity.user.created", "user_id", u.ID, "username", u.Username)
	fmt.Fprintf(c.App.Writer, "created user %d (%s)\n", u.ID, u.Username)
	return nil
}

type newUserInput struct {
	Username  string
	Password  string
	Name      string
	Phone     string
	CompanyID *int64
}

func addUser(ctx context.Context, users identity.Store, pw password.Config, in newUserInput) (identity.User, error) {
	hash, salt, err := pw.New(in.Password)
	if err != nil {
		return identity.User{}, fmt.Errorf("password: %w", err)
	}
	return users.CreateUser(ctx, identity.CreateUserInput{
		Username:     in.Username,
		PasswordHash: hash,
		Salt:         salt,
		Name:         in.Name,
		Phone:        in.Phone,
		CompanyID:    in.CompanyID,
		Now:          time.Now().UTC(),
	})
}

func companyCommand() *cli.Command {
	return &cli.Command{
		Name:  "company",
		Usage: "Manage companies",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a company in Postgres",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true},
					&cli.StringFlag{Name: "contact"},
					&cli.StringFlag{Name: "phone"},
				},
				Action: companyAdd,
			},
		},
	}
}

func companyAdd(c *cli.Context) error {
	cfg := loadConfig(c)
	if !cfg.DBEnabled() {
		return errors.New("company add: COLDEYE_DATABASE_URL (or --database-url) is required")
	}
	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)

	pool, err := app.NewDBPool(c.Context, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	svc := company.NewService(company.NewPostgresRepository(db, cfg.DBSchema))
	created, err := svc.Create(c.Context, company.Company{
		Name:    c.String("name"),
		Contact: c.String("contact"),
		Phone:   c.String("phone"),
	})
	if err != nil {
		return err
	}
	log.Info("company.created", "company_id", created.ID, "name", created.Name)
	fmt.Fprintf(c.App.Writer, "created company %d (%s)\n", created.ID, created.Name)
	return nil
}
