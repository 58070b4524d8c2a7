package authapi

import (
	"os"
	"strconv"
	"strings"
)

// DefaultCompanyName is shown for users without a linked company.
const DefaultCompanyName = "月迹"

// Config controls auth API behavior.
type Config struct {
	TrustProxy         bool
	MaxBodyBytes       int64
	DefaultCompanyName string
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:         envBool("COLDEYE_TRUST_PROXY", false),
		MaxBodyBytes:       envInt64("COLDEYE_MAX_BODY_BYTES", 64<<10), // 64 KiB
		DefaultCompanyName: strings.TrimSpace(os.Getenv("COLDEYE_DEFAULT_COMPANY_NAME")),
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 10
	}
	if c.DefaultCompanyName == "" {
		c.DefaultCompanyName = DefaultCompanyName
	}
	return c
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
