package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"authcore/cmd/identity"
	"authcore/cmd/security/token"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Issuer = "authcore-test"
	cfg.AccessTokenSecret = "access-secret-for-tests-0123456789"
	cfg.RefreshTokenSecret = "refresh-secret-for-tests-0123456789"
	cfg.AccessTokenTTL = 15 * time.Minute
	cfg.RefreshTokenTTL = 24 * time.Hour
	cfg.StoreTimeout = time.Second
	return cfg
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// principalsFrom exposes an identity store the way the API layer wires it.
func principalsFrom(users identity.Store) Principals {
	return PrincipalsFunc(func(ctx context.Context, id string) (Principal, error) {
		u, err := users.FindByID(ctx, id)
		if err != nil {
			return Principal{}, err
		}
		return Principal{ID: u.ID, Email: u.Email}, nil
	})
}

var phoneSeq atomic.Int64

func mustCreatePrincipal(t *testing.T, users identity.Store, email string) identity.User {
	t.Helper()
	u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PhoneNumber:  fmt.Sprintf("+1555%07d", phoneSeq.Add(1)),
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func fp(raw string) string { return token.HashSHA256Hex(raw) }
