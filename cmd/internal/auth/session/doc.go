// Package session implements the refresh-token session lifecycle.
//
// A login issues a short-lived access JWT and a longer-lived refresh JWT and
// stores a Session keyed by the refresh token's fingerprint. Refresh rotates
// the session in place: the presented token must still match the stored
// fingerprint, and on success the old token stops working immediately.
// Logout deletes the session and is idempotent.
//
// Raw refresh tokens are never persisted. Only fingerprints
// (SHA-256, or HMAC-SHA256 when a fingerprint key is configured) reach a Store.
//
// Transport concerns (cookies, headers, response bodies) live in the api package.
package session
