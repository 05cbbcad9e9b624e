package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"authcore/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// Issuer is set as the "iss" claim. Empty omits it.
	Issuer string

	AccessTokenSecret  string
	RefreshTokenSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// FingerprintKey switches fingerprints to HMAC-SHA256 when set.
	FingerprintKey string

	// StoreTimeout bounds every individual store call.
	StoreTimeout time.Duration

	// ReapInterval enables the expired-session reaper when > 0.
	ReapInterval time.Duration
}

// DefaultConfig returns defaults without secrets.
func DefaultConfig() Config {
	return Config{
		Issuer:          "authcore",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		StoreTimeout:    5 * time.Second,
	}
}

// Validate returns an error wrapping ErrConfig when cfg is unusable.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.AccessTokenSecret) == "":
		return fmt.Errorf("%w: ACCESS_TOKEN_SECRET is required", ErrConfig)
	case strings.TrimSpace(c.RefreshTokenSecret) == "":
		return fmt.Errorf("%w: REFRESH_TOKEN_SECRET is required", ErrConfig)
	case c.AccessTokenSecret == c.RefreshTokenSecret:
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	case c.AccessTokenTTL <= 0:
		return fmt.Errorf("%w: access token expiry must be positive", ErrConfig)
	case c.RefreshTokenTTL <= 0:
		return fmt.Errorf("%w: refresh token expiry must be positive", ErrConfig)
	case c.StoreTimeout <= 0:
		return fmt.Errorf("%w: store timeout must be positive", ErrConfig)
	case c.ReapInterval < 0:
		return fmt.Errorf("%w: reap interval must not be negative", ErrConfig)
	}
	if _, err := token.NewFingerprinter(c.FingerprintKey); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

// ParseExpiry parses token expiry settings.
//
// Accepted forms: Go durations ("15m", "36h"), whole days ("7d"),
// and bare integers as seconds ("900").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty expiry", ErrConfig)
	}

	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("%w: invalid expiry %q", ErrConfig, s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%w: invalid expiry %q", ErrConfig, s)
		}
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid expiry %q", ErrConfig, s)
	}
	return d, nil
}
