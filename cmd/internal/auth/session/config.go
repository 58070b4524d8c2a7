package session

import (
	"os"
	"strconv"
	"strings"
	"time"

	"coldeye/cmd/security/token"
)

// Config controls token lifetime and hygiene.
type Config struct {
	// TTL is how long an issued token stays valid.
	TTL time.Duration

	// MaxTTL bounds TTL so a typo in the environment cannot mint near-permanent tokens.
	MaxTTL time.Duration

	// TokenBytes is the entropy of generated tokens (16 bytes = 32 hex chars).
	TokenBytes int

	// SweepInterval enables periodic purging of expired rows. Zero disables it.
	SweepInterval time.Duration
}

// DefaultConfig returns the 12h single-session defaults.
func DefaultConfig() Config {
	return Config{
		TTL:           12 * time.Hour,
		MaxTTL:        30 * 24 * time.Hour,
		TokenBytes:    16,
		SweepInterval: 0,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - COLDEYE_SESSION_TTL
//   - COLDEYE_SESSION_MAX_TTL
//   - COLDEYE_TOKEN_BYTES (16..64)
//   - COLDEYE_SESSION_SWEEP_INTERVAL ("0" disables)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("COLDEYE_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TTL = d
	}

	if v := strings.TrimSpace(os.Getenv("COLDEYE_SESSION_MAX_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.MaxTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("COLDEYE_TOKEN_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	if v := strings.TrimSpace(os.Getenv("COLDEYE_SESSION_SWEEP_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.SweepInterval = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants between fields.
func (c Config) Validate() error {
	if c.TTL <= 0 || c.TTL > c.MaxTTL {
		return ErrConfig
	}
	if c.TokenBytes < token.MinBytes || c.TokenBytes > token.MaxBytes {
		return ErrConfig
	}
	if c.SweepInterval < 0 {
		return ErrConfig
	}
	return nil
}
