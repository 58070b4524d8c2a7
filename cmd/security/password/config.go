package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Scheme names the format new password hashes are written in.
type Scheme string

const (
	// SchemeArgon2id writes PHC-encoded argon2id hashes with an embedded salt.
	SchemeArgon2id Scheme = "argon2id"
	// SchemeSaltedSHA256 writes hex(SHA-256(salt || password)) plus a separate salt.
	SchemeSaltedSHA256 Scheme = "sha256"
)

// ParseScheme maps a config string to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeArgon2id, "":
		return SchemeArgon2id, nil
	case SchemeSaltedSHA256, "sha-256", "legacy":
		return SchemeSaltedSHA256, nil
	default:
		return "", ErrUnknownScheme
	}
}

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation for newly provisioned credentials.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Scheme Scheme
	Params Argon2idParams
	Policy Policy

	// LegacySaltBytes is the random salt size for SchemeSaltedSHA256 (hex encoded on storage).
	LegacySaltBytes int
}

// DefaultConfig returns argon2id with interactive-login cost settings.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Scheme: SchemeArgon2id,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
		LegacySaltBytes: 10,
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
//   - COLDEYE_PASSWORD_SCHEME (argon2id|sha256)
//   - COLDEYE_PASSWORD_MIN_LEN, COLDEYE_PASSWORD_MAX_LEN
//   - COLDEYE_PASSWORD_REJECT_VERY_WEAK
//   - COLDEYE_ARGON2_MEMORY_KIB, COLDEYE_ARGON2_ITERATIONS, COLDEYE_ARGON2_PARALLELISM
//   - COLDEYE_ARGON2_SALT_LEN, COLDEYE_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("COLDEYE_PASSWORD_SCHEME"); ok {
		s, err := ParseScheme(v)
		if err != nil {
			return Config{}, fmt.Errorf("COLDEYE_PASSWORD_SCHEME: %w", err)
		}
		cfg.Scheme = s
	}

	ints := []struct {
		key      string
		min, max int
		dst      *int
	}{
		{"COLDEYE_PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength},
		{"COLDEYE_PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength},
	}
	for _, f := range ints {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		n, err := atoiRange(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}

	if v, ok := os.LookupEnv("COLDEYE_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("COLDEYE_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	u32s := []struct {
		key      string
		min, max uint32
		dst      *uint32
	}{
		{"COLDEYE_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB},
		{"COLDEYE_ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"COLDEYE_ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"COLDEYE_ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, f := range u32s {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		u, err := atou32Range(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = u
	}

	if v, ok := os.LookupEnv("COLDEYE_ARGON2_PARALLELISM"); ok {
		u, err := atou32Range(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("COLDEYE_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- bounded above.
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}

func atou32Range(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}
