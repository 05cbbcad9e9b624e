package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"authcore/cmd/identity/ids"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
	byPhone map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
		byPhone: make(map[string]string),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := in.check(op); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	email := NormalizeEmail(in.Email)
	phone := NormalizePhone(in.PhoneNumber)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}
	if _, ok := s.byPhone[phone]; ok {
		return User{}, ConflictError{Op: op, Field: "phone_number"}
	}

	id, err := ids.New(now)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           id,
		FirstName:    strings.TrimSpace(in.FirstName),
		MiddleName:   in.MiddleName,
		LastName:     strings.TrimSpace(in.LastName),
		Age:          in.Age,
		State:        in.State,
		Country:      in.Country,
		Email:        email,
		PhoneNumber:  phone,
		Role:         in.role(),
		IsVerified:   in.IsVerified,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[id] = u
	s.byEmail[email] = id
	s.byPhone[phone] = id
	return u, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, NotFoundError{Op: "identity.FindByEmail", Key: "email"}
	}
	return s.byID[id], nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.FindByID", Key: "id"}
	}
	return u, nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return NotFoundError{Op: "identity.UpdatePasswordHash", Key: "id"}
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	s.byID[id] = u
	return nil
}

// Delete removes a principal. Tests use it to simulate a deleted account.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byEmail, u.Email)
	delete(s.byPhone, u.PhoneNumber)
}
