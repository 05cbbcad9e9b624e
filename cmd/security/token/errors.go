package token

import "errors"

// Public, stable errors for callers.
var (
	ErrKeyTooShort = errors.New("fingerprint key too short")
)
