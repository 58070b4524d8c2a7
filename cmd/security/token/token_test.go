package token

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerate_DefaultSizeIsHex32(t *testing.T) {
	t.Parallel()

	tok, err := Generate(16)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tok) != 32 {
		t.Fatalf("expected 32 chars, got %d (%q)", len(tok), tok)
	}
	if strings.Trim(tok, "0123456789abcdef") != "" {
		t.Fatalf("expected lowercase hex, got %q", tok)
	}

	other, err := Generate(16)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if tok == other {
		t.Fatalf("two generated tokens collided: %q", tok)
	}
}

func TestGenerate_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 8, MaxBytes + 1} {
		if _, err := Generate(n); !errors.Is(err, ErrTokenSize) {
			t.Fatalf("Generate(%d): expected ErrTokenSize, got %v", n, err)
		}
	}
}

func TestHasher_Modes(t *testing.T) {
	t.Parallel()

	plain := "16d6d32e087895ac8679fa6878dce80e"

	unkeyed := NewHasher(nil)
	if unkeyed.Keyed() {
		t.Fatalf("expected unkeyed hasher")
	}
	if got := unkeyed.Hex(plain); got != HashSHA256Hex(plain) {
		t.Fatalf("unkeyed hash mismatch: %q", got)
	}

	key := []byte(strings.Repeat("k", MinHMACKeyBytes))
	keyed := NewHasher(key)
	if !keyed.Keyed() {
		t.Fatalf("expected keyed hasher")
	}
	got := keyed.Hex(plain)
	if got != HashHMACSHA256Hex(plain, key) {
		t.Fatalf("keyed hash mismatch: %q", got)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
	if got == unkeyed.Hex(plain) {
		t.Fatalf("keyed and unkeyed hashes must differ")
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(MinHMACKeyBytes); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(MinHMACKeyBytes); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("x", MinHMACKeyBytes))
	if _, err := HMACKeyFromEnv(MinHMACKeyBytes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !HMACEnabled() || !HasherFromEnv().Keyed() {
		t.Fatalf("expected HMAC mode from env")
	}
}
