package authapi

import "time"

// Config controls auth API behavior and security defaults.
type Config struct {
	// TrustProxy reads the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy   bool
	MaxBodyBytes int64

	// StoreTimeout bounds principal store calls.
	StoreTimeout time.Duration

	// ExposeErrorDetail adds internal error text to error envelopes.
	// Only enabled in development.
	ExposeErrorDetail bool

	Cookie CookieConfig
}

// CookieConfig describes the web refresh cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 1 << 20, // 1 MiB
		StoreTimeout: 5 * time.Second,
		Cookie: CookieConfig{
			Name:   "refreshToken",
			Path:   "/",
			Secure: true,
		},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = def.StoreTimeout
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = def.Cookie.Name
	}
	if c.Cookie.Path == "" {
		c.Cookie.Path = def.Cookie.Path
	}
	return c
}
