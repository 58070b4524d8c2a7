package app

import (
	"errors"

	"coldeye/cmd/security/token"
)

// ValidateSecurityConfig enforces the token hashing policy at startup.
// Falling back to plain SHA-256 under COLDEYE_REQUIRE_TOKEN_HMAC is a startup error.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// The key is used as raw bytes, so length is measured in bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: COLDEYE_REQUIRE_TOKEN_HMAC=true but COLDEYE_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: COLDEYE_REQUIRE_TOKEN_HMAC=true but COLDEYE_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: COLDEYE_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}

// tokenHasher validates the policy and returns the hasher sessions use.
func tokenHasher(cfg Config) (token.Hasher, error) {
	if err := ValidateSecurityConfig(cfg); err != nil {
		return token.Hasher{}, err
	}
	h := token.HasherFromEnv()
	if cfg.RequireTokenHMAC && !h.Keyed() {
		return token.Hasher{}, errors.New("security policy: token hasher is not keyed")
	}
	return h, nil
}
