// Package password provides password hashing, verification and the
// registration password policy.
//
// New hashes are Argon2id in a PHC-like encoded string. Verify also accepts
// bcrypt hashes ($2a$, $2b$, $2y$) so accounts created by the previous
// bcrypt-based deployment can still log in.
//
// Hash strings are treated as untrusted input during Verify; Argon2id
// parameters far above the configured cost are refused.
package password
