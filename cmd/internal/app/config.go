package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Token store backends.
const (
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
	TokenStoreMemory   = "memory"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBSchema       string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// TokenStore selects where session tokens live. Empty picks postgres when
	// DatabaseURL is set and memory otherwise.
	TokenStore    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// If true, COLDEYE_TOKEN_HMAC_KEY must be set (>= 32 bytes) and token hashing must be HMAC-based.
	RequireTokenHMAC bool

	MetricsEnabled bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// Seed account for the in-memory credential store (no DATABASE_URL).
	DevAdminUsername string
	DevAdminPassword string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("COLDEYE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("COLDEYE_LOG_LEVEL", "info"),
		LogFormat: EnvString("COLDEYE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("COLDEYE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("COLDEYE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("COLDEYE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("COLDEYE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("COLDEYE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("COLDEYE_DATABASE_URL", ""),
		DBSchema:       EnvString("COLDEYE_DB_SCHEMA", "public"),
		DBMaxConns:     EnvInt32("COLDEYE_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("COLDEYE_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("COLDEYE_MIGRATE_ON_START", false),

		ReadinessRequireDB: EnvBool("COLDEYE_READINESS_REQUIRE_DB", false),

		TokenStore:    strings.ToLower(EnvString("COLDEYE_TOKEN_STORE", "")),
		RedisAddr:     EnvString("COLDEYE_REDIS_ADDR", ""),
		RedisPassword: EnvString("COLDEYE_REDIS_PASSWORD", ""),
		RedisDB:       int(EnvInt32("COLDEYE_REDIS_DB", 0)),

		RequireTokenHMAC: EnvBool("COLDEYE_REQUIRE_TOKEN_HMAC", false),

		MetricsEnabled: EnvBool("COLDEYE_METRICS_ENABLED", true),

		CORSAllowedOrigins:   EnvList("COLDEYE_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("COLDEYE_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("COLDEYE_CORS_MAX_AGE_SECONDS", 600),

		DevAdminUsername: EnvString("COLDEYE_DEV_ADMIN_USERNAME", ""),
		DevAdminPassword: EnvString("COLDEYE_DEV_ADMIN_PASSWORD", ""),
	}
}

// DBEnabled reports whether Postgres is configured.
func (c Config) DBEnabled() bool { return c.DatabaseURL != "" }

// ResolvedTokenStore returns the effective token store backend.
func (c Config) ResolvedTokenStore() string {
	if c.TokenStore != "" {
		return c.TokenStore
	}
	if c.DBEnabled() {
		return TokenStorePostgres
	}
	return TokenStoreMemory
}

// Validate checks combinations LoadConfig cannot catch field by field.
func (c Config) Validate() error {
	switch c.ResolvedTokenStore() {
	case TokenStorePostgres:
		if !c.DBEnabled() {
			return errors.New("config: COLDEYE_TOKEN_STORE=postgres requires COLDEYE_DATABASE_URL")
		}
	case TokenStoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: COLDEYE_TOKEN_STORE=redis requires COLDEYE_REDIS_ADDR")
		}
	case TokenStoreMemory:
	default:
		return fmt.Errorf("config: unknown COLDEYE_TOKEN_STORE %q", c.TokenStore)
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "pretty":
	default:
		return fmt.Errorf("config: unknown COLDEYE_LOG_FORMAT %q", c.LogFormat)
	}

	if c.MigrateOnStart && !c.DBEnabled() {
		return errors.New("config: COLDEYE_MIGRATE_ON_START requires COLDEYE_DATABASE_URL")
	}
	return nil
}
