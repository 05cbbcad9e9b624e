package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"authcore/cmd/identity/ids"
)

// MemoryStore is an in-process Store. It is used in tests and when
// AUTH_SESSION_STORE=memory.
type MemoryStore struct {
	mu   sync.Mutex
	byID map[string]Session
	byFP map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]Session),
		byFP: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, in NewSession) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.New(now)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byFP[in.Fingerprint]; ok {
		return Session{}, ErrDuplicateFingerprint
	}

	sess := Session{
		ID:          id,
		PrincipalID: in.PrincipalID,
		Fingerprint: in.Fingerprint,
		Provenance:  in.Provenance,
		ExpiresAt:   in.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byID[id] = sess
	s.byFP[in.Fingerprint] = id
	return sess, nil
}

func (s *MemoryStore) FindByFingerprint(ctx context.Context, fp string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byFP[fp]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) Rotate(ctx context.Context, id, oldFP, newFP string, expiresAt, now time.Time) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Fingerprint != oldFP {
		return Session{}, ErrRotateConflict
	}
	if owner, taken := s.byFP[newFP]; taken && owner != id {
		return Session{}, ErrDuplicateFingerprint
	}

	delete(s.byFP, oldFP)
	sess.Fingerprint = newFP
	sess.ExpiresAt = expiresAt
	sess.UpdatedAt = now
	s.byID[id] = sess
	s.byFP[newFP] = id
	return sess, nil
}

func (s *MemoryStore) DeleteByFingerprint(ctx context.Context, fp string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byFP[fp]
	if !ok {
		return false, nil
	}
	delete(s.byFP, fp)
	delete(s.byID, id)
	return true, nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.byID {
		if sess.Active(now) {
			continue
		}
		delete(s.byFP, sess.Fingerprint)
		delete(s.byID, id)
		n++
	}
	return n, nil
}

// Sessions returns a snapshot of all sessions ordered by id.
func (s *MemoryStore) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.byID))
	for _, sess := range s.byID {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
