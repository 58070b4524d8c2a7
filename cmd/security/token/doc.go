// Package token provides opaque session token generation and hashing.
//
// Tokens are random bytes rendered as lowercase hex. The server never stores a
// plain token: stores key records by HashTokenHex(token).
//
// Environment:
//   - COLDEYE_TOKEN_HMAC_KEY: when set, hashing is HMAC-SHA256 keyed by it;
//     otherwise plain SHA-256 is used (dev mode).
//
// Policy:
//   - If COLDEYE_REQUIRE_TOKEN_HMAC=true, startup validation enforces a key of
//     at least MinHMACKeyBytes bytes.
package token
