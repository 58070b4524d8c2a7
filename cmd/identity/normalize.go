package identity

import "strings"

// NormalizeUsername is the lookup key for usernames: trimmed and lower-cased.
// The unique index on sys_user uses the same folding (lower(username)).
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
