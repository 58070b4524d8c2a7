package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Version = argon2.Version

const phcPrefix = "$argon2id$"

// New validates password against the policy and hashes it with the configured
// scheme. salt is empty for argon2id (the salt lives inside the PHC string).
func (c Config) New(password string) (hash, salt string, err error) {
	if err := c.Validate(password); err != nil {
		return "", "", err
	}

	switch c.Scheme {
	case SchemeArgon2id, "":
		hash, err = c.HashArgon2id(password)
		return hash, "", err
	case SchemeSaltedSHA256:
		n := c.LegacySaltBytes
		if n <= 0 {
			n = 10
		}
		raw := make([]byte, n)
		if _, err := rand.Read(raw); err != nil {
			return "", "", fmt.Errorf("salt: %w", err)
		}
		salt = hex.EncodeToString(raw)
		return SaltedSHA256Hex(password, salt), salt, nil
	default:
		return "", "", ErrUnknownScheme
	}
}

// HashArgon2id returns $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>.
func (c Config) HashArgon2id(password string) (string, error) {
	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, c.Params.Iterations, c.Params.MemoryKiB, c.Params.Parallelism, c.Params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix,
		argon2Version,
		c.Params.MemoryKiB,
		c.Params.Iterations,
		c.Params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// SaltedSHA256Hex computes lowercase hex(SHA-256(salt || password)), the digest
// format of rows provisioned before argon2id was introduced.
func SaltedSHA256Hex(password, salt string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

// IsArgon2id reports whether stored looks like a PHC argon2id string.
func IsArgon2id(stored string) bool {
	return strings.HasPrefix(stored, phcPrefix)
}

// Check verifies password against a stored hash in either format.
// Returns (false, nil) on mismatch and (false, ErrInvalidHash) for unusable input.
func (c Config) Check(stored, salt, password string) (bool, error) {
	if IsArgon2id(stored) {
		return c.verifyArgon2id(stored, password)
	}

	stored = strings.ToLower(strings.TrimSpace(stored))
	if len(stored) != sha256.Size*2 {
		return false, ErrInvalidHash
	}
	got := SaltedSHA256Hex(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(stored)) == 1, nil
}

func (c Config) verifyArgon2id(encoded, password string) (bool, error) {
	params, salt, expected, err := decode(encoded)
	if err != nil {
		return false, err
	}
	if !withinBounds(params, c.Params) {
		return false, ErrInvalidHash
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(expected)), // #nosec G115 -- bounded by withinBounds.
	)
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// withinBounds rejects hashes whose cost would let a crafted row pin the CPU.
func withinBounds(got, limits Argon2idParams) bool {
	switch {
	case got.MemoryKiB > limits.MemoryKiB*2,
		got.Iterations > limits.Iterations*2,
		got.Parallelism > limits.Parallelism*2:
		return false
	case got.SaltLength < 8 || got.SaltLength > 64:
		return false
	case got.KeyLength < 16 || got.KeyLength > 128:
		return false
	}
	return true
}

func decode(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),        // #nosec G115 -- checked <= 255 above.
		SaltLength:  uint32(len(salt)), // #nosec G115
		KeyLength:   uint32(len(key)),  // #nosec G115
	}, salt, key, nil
}
