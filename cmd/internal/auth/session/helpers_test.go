package session

import "coldeye/cmd/security/token"

// HashForTest returns the default storage key for a plain token.
func HashForTest(plain string) string { return token.HashSHA256Hex(plain) }
