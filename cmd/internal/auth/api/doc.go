// Package authapi serves the /sys/user endpoints: login, token lookup, logout
// and the current user's profile.
//
// Responses use the httpx envelope; the one exception is getToken, which
// returns the bare token record on success.
package authapi
