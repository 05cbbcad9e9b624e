// Package token provides the refresh-token fingerprint used as the session
// lookup key.
//
// A fingerprint is a 64-char lower-case hex digest of the raw token:
//   - SHA-256(token) by default
//   - HMAC-SHA256(token, key) when a fingerprint key is configured
//
// The raw token is never needed again once fingerprinted; stores persist only
// the digest.
package token
