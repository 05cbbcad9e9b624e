package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind selects the secret a token is signed and verified with.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

func (k TokenKind) String() string {
	if k == RefreshToken {
		return "refresh"
	}
	return "access"
}

// Claims is the verified identity carried by a token.
type Claims struct {
	ID    string
	Email string
}

type tokenClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 JWTs. It holds no mutable state.
type Codec struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithCodecClock overrides the codec clock.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a Codec from cfg.
func NewCodec(cfg Config, opts ...CodecOption) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Codec{
		issuer:        cfg.Issuer,
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RefreshWindow is the refresh token lifetime (also the session lifetime).
func (c *Codec) RefreshWindow() time.Duration { return c.refreshTTL }

// IssueAccessToken signs an access token for the principal.
func (c *Codec) IssueAccessToken(principalID, email string) (string, time.Time, error) {
	return c.issue(AccessToken, principalID, email)
}

// IssueRefreshToken signs a refresh token for the principal.
func (c *Codec) IssueRefreshToken(principalID, email string) (string, time.Time, error) {
	return c.issue(RefreshToken, principalID, email)
}

func (c *Codec) issue(kind TokenKind, principalID, email string) (string, time.Time, error) {
	now := c.now()
	secret, ttl := c.params(kind)
	exp := now.Add(ttl)

	claims := tokenClaims{
		ID:    principalID,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature and expiry and returns the token's claims.
// Any failure other than expiry is ErrInvalidSignature.
func (c *Codec) Verify(raw string, kind TokenKind) (Claims, error) {
	secret, _ := c.params(kind)

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidSignature
	}
	if claims.ID == "" {
		return Claims{}, ErrInvalidSignature
	}
	return Claims{ID: claims.ID, Email: claims.Email}, nil
}

func (c *Codec) params(kind TokenKind) ([]byte, time.Duration) {
	if kind == RefreshToken {
		return c.refreshSecret, c.refreshTTL
	}
	return c.accessSecret, c.accessTTL
}
