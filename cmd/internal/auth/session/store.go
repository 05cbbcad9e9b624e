package session

import (
	"context"
	"time"
)

// Provenance describes the client that opened a session.
type Provenance struct {
	UserAgent     string
	OriginAddress string
}

// Session is one device-level login.
// Fingerprint is the digest of the current refresh token, never the token itself.
type Session struct {
	ID          string
	PrincipalID string
	Fingerprint string
	Provenance
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the session is usable at now.
func (s Session) Active(now time.Time) bool { return now.Before(s.ExpiresAt) }

// NewSession is the input to Store.Create.
type NewSession struct {
	PrincipalID string
	Fingerprint string
	Provenance  Provenance
	ExpiresAt   time.Time
	Now         time.Time
}

// Store abstracts persistence for session state.
//
// Implementations must make Rotate a compare-and-swap on the fingerprint so
// that concurrent refreshes of the same token have a single winner.
type Store interface {
	// Create inserts a session. A fingerprint already in use returns ErrDuplicateFingerprint.
	Create(ctx context.Context, in NewSession) (Session, error)

	// FindByFingerprint returns the session bound to fp or ErrSessionNotFound.
	// Expiry is not checked here.
	FindByFingerprint(ctx context.Context, fp string) (Session, error)

	// Rotate swaps oldFP for newFP on session id and extends its expiry.
	// A missing session or a fingerprint mismatch returns ErrRotateConflict
	// (or ErrSessionNotFound); newFP in use returns ErrDuplicateFingerprint.
	Rotate(ctx context.Context, id, oldFP, newFP string, expiresAt, now time.Time) (Session, error)

	// DeleteByFingerprint removes the session bound to fp and reports whether one existed.
	DeleteByFingerprint(ctx context.Context, fp string) (bool, error)

	// DeleteExpired purges sessions with expires_at <= now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
