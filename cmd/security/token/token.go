package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// MinKeyBytes is the minimum accepted HMAC key size.
const MinKeyBytes = 32

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Fingerprinter computes refresh-token fingerprints.
// The zero value hashes with plain SHA-256.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a Fingerprinter. An empty key selects SHA-256;
// a non-empty key must be at least MinKeyBytes long and selects HMAC-SHA256.
func NewFingerprinter(key string) (Fingerprinter, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Fingerprinter{}, nil
	}
	// Measured in bytes: the key is used as raw bytes.
	if len(key) < MinKeyBytes {
		return Fingerprinter{}, ErrKeyTooShort
	}
	return Fingerprinter{key: []byte(key)}, nil
}

// Keyed reports whether fingerprints are HMAC-based.
func (f Fingerprinter) Keyed() bool { return len(f.key) > 0 }

// Fingerprint returns the storage digest of a raw refresh token.
func (f Fingerprinter) Fingerprint(raw string) string {
	if len(f.key) == 0 {
		return HashSHA256Hex(raw)
	}
	return HashHMACSHA256Hex(raw, f.key)
}

// Equal compares two fingerprints in constant time.
func Equal(a, b string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
