// Package session issues, looks up, and invalidates opaque login tokens.
//
// Each user holds at most one live token: issuing a new one replaces the old
// row (last writer wins). Expiry is lazy, checked on every lookup; a Sweeper
// may additionally purge expired rows from the store.
//
// Plain tokens are handed to the client once and never stored. Stores key
// rows by the token's SHA-256 (or HMAC-SHA256) hex digest.
package session
