package session

import "errors"

var (
	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")

	// ErrInvalidSignature is returned when a token cannot be parsed or its
	// signature does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when a well-signed token is past its exp claim.
	ErrTokenExpired = errors.New("token expired")

	// ErrSessionNotFound is returned when no session carries the fingerprint or id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateFingerprint is returned when a fingerprint is already bound
	// to another session.
	ErrDuplicateFingerprint = errors.New("duplicate token fingerprint")

	// ErrRotateConflict is returned when a rotation's expected fingerprint no
	// longer matches (another refresh won the race).
	ErrRotateConflict = errors.New("rotate conflict")
)
