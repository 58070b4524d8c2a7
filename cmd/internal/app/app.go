// Package app wires the coldeye server runtime: config, logging, storage backends,
// HTTP routes, and background workers.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	authapi "coldeye/cmd/internal/auth/api"
	"coldeye/cmd/internal/auth/session"
	"coldeye/cmd/internal/company"
	"coldeye/cmd/identity"
	"coldeye/cmd/security/password"
	"coldeye/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// App is the coldeye server runtime. It owns every backend connection it opens.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	sqlDB  *sql.DB
	redis  *redis.Client

	sessions *session.Service
	sweeper  *session.Sweeper

	handler http.Handler
}

// New constructs a fully wired App from config and logger.
// Backend connections opened here are released by Close.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := tokenHasher(cfg)
	if err != nil {
		return nil, err
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}

	a := &App{cfg: cfg, log: log}
	if err := a.wire(ctx, sessCfg, pwCfg, hasher); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, sessCfg session.Config, pwCfg password.Config, hasher token.Hasher) error {
	cfg, log := a.cfg, a.log

	if cfg.DBEnabled() {
		if err := migrateOnStart(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return err
		}
		a.dbPool = pool
		a.sqlDB = stdlib.OpenDBFromPool(a.dbPool)
		log.Info("db.enabled", "schema", cfg.DBSchema)
	} else {
		log.Info("db.disabled.inmemory_store")
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = newRegistry()
	}
	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}

	store, err := a.newTokenStore(ctx)
	if err != nil {
		return err
	}
	a.sessions = session.NewService(sessCfg, store,
		session.WithHasher(hasher),
		session.WithMetrics(session.NewMetrics(registerer)),
	)
	a.sweeper = session.NewSweeper(a.sessions, sessCfg.SweepInterval, log)

	users, err := a.newUserStore(ctx, pwCfg)
	if err != nil {
		return err
	}
	authn, err := identity.NewAuthenticator(users, pwCfg, log)
	if err != nil {
		return err
	}

	companies := company.NewService(a.newCompanyRepository())

	var audit authapi.AuditSink = authapi.NoopAuditSink{}
	if a.dbPool != nil {
		audit = authapi.NewPostgresAuditLog(a.dbPool, cfg.DBSchema, log)
	}

	authHandler, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), authapi.Deps{
		Auth:      authn,
		Users:     users,
		Sessions:  a.sessions,
		Companies: companies,
		Audit:     audit,
		Metrics:   authapi.NewMetrics(registerer),
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	rt := routes{
		dbPool:    a.dbPool,
		registry:  reg,
		auth:      authHandler,
		companies: company.NewHandler(log, companies),
	}
	if a.redis != nil {
		rt.redis = a.redis
	}
	registerHTTP(mux, log, cfg, rt)

	var hm *httpMetrics
	if registerer != nil {
		hm = newHTTPMetrics(registerer)
	}

	// Outermost first: request id, access log, metrics, headers, CORS.
	var h http.Handler = mux
	h = WithCORS(h, cfg, log)
	h = WithSecurityHeaders(h)
	h = WithMetrics(h, hm)
	h = WithRequestLogging(h, log)
	h = WithRequestID(h)
	a.handler = h
	return nil
}

func (a *App) newTokenStore(ctx context.Context) (session.Store, error) {
	switch backend := a.cfg.ResolvedTokenStore(); backend {
	case TokenStorePostgres:
		a.log.Info("session.store", "backend", backend)
		return session.NewPostgresStore(a.dbPool, a.cfg.DBSchema)
	case TokenStoreRedis:
		client, err := NewRedisClient(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.log.Info("session.store", "backend", backend, "addr", a.cfg.RedisAddr)
		return session.NewRedisStore(client, ""), nil
	default:
		a.log.Info("session.store", "backend", TokenStoreMemory)
		return session.NewMemoryStore(), nil
	}
}

func (a *App) newUserStore(ctx context.Context, pw password.Config) (identity.Store, error) {
	if a.dbPool != nil {
		return identity.NewPostgresStore(a.dbPool, identity.WithSchema(a.cfg.DBSchema))
	}

	users := identity.NewMemoryStore()
	if err := seedDevAdmin(ctx, users, pw, a.cfg); err != nil {
		return nil, err
	}
	if a.cfg.DevAdminUsername != "" {
		a.log.Info("identity.dev_admin.seeded", "username", a.cfg.DevAdminUsername)
	}
	return users, nil
}

func (a *App) newCompanyRepository() company.Repository {
	if a.sqlDB != nil {
		return company.NewPostgresRepository(a.sqlDB, a.cfg.DBSchema)
	}
	return company.NewMemoryRepository()
}

func seedDevAdmin(ctx context.Context, users identity.Store, pw password.Config, cfg Config) error {
	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		return nil
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("config: COLDEYE_DEV_ADMIN_USERNAME requires COLDEYE_DEV_ADMIN_PASSWORD")
	}

	hash, salt, err := pw.New(cfg.DevAdminPassword)
	if err != nil {
		return fmt.Errorf("dev admin: %w", err)
	}
	_, err = users.CreateUser(ctx, identity.CreateUserInput{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		Name:         username,
	})
	return err
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and the token sweeper, and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		a.sweeper.Run(sweepCtx)
	}()
	defer func() {
		stopSweep()
		<-sweepDone
	}()

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbPool != nil,
		"token_store", a.cfg.ResolvedTokenStore(),
		"session_ttl", a.sessions.TTL().String(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// Close releases backend connections. It is safe to call more than once.
func (a *App) Close() {
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.log.Warn("db.sql.close.fail", "err", err)
		}
		a.sqlDB = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis.close.fail", "err", err)
		}
		a.redis = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
