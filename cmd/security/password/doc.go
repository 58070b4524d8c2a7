// Package password hashes and verifies user passwords.
//
// Two stored formats are understood:
//   - argon2id PHC strings ($argon2id$v=19$m=..,t=..,p=..$salt$key), produced by Hash;
//   - legacy salted digests: lowercase hex of SHA-256(salt || password), with the
//     salt kept in its own column.
//
// Check picks the verifier from the stored format, so rows written by either
// scheme keep working side by side.
package password
