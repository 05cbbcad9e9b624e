package app

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	authapi "authcore/cmd/internal/auth/api"
	"authcore/cmd/internal/auth/session"
	"authcore/cmd/security/password"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config contains all runtime configuration.
//
// Values come from the environment, optionally seeded by a .env file in the
// working directory. Environment variables win over the file.
type Config struct {
	Port       int    `mapstructure:"PORT"`
	HTTPAddr   string `mapstructure:"HTTP_ADDR"`
	Env        string `mapstructure:"APP_ENV"`
	APIVersion string `mapstructure:"API_VERSION"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`

	ReadHeaderTimeout time.Duration `mapstructure:"HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `mapstructure:"HTTP_SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes    int           `mapstructure:"HTTP_MAX_HEADER_BYTES"`

	CORSAllowedOrigins   []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	CORSAllowCredentials bool     `mapstructure:"CORS_ALLOW_CREDENTIALS"`
	CORSMaxAgeSeconds    int      `mapstructure:"CORS_MAX_AGE_SECONDS"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	DBSchema    string `mapstructure:"DB_SCHEMA"`

	RedisURL    string `mapstructure:"REDIS_URL"`
	RedisPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	// ReadinessRequireDB makes /readyz fail unless a database is configured.
	ReadinessRequireDB bool `mapstructure:"READINESS_REQUIRE_DB"`

	SessionStore       string        `mapstructure:"AUTH_SESSION_STORE"`
	AccessTokenSecret  string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTokenExpiry  string        `mapstructure:"ACCESS_TOKEN_EXPIRY"`
	RefreshTokenExpiry string        `mapstructure:"REFRESH_TOKEN_EXPIRY"`
	TokenIssuer        string        `mapstructure:"AUTH_TOKEN_ISSUER"`
	FingerprintKey     string        `mapstructure:"AUTH_FINGERPRINT_KEY"`
	StoreTimeout       time.Duration `mapstructure:"AUTH_STORE_TIMEOUT"`
	ReapInterval       time.Duration `mapstructure:"AUTH_SESSION_REAP_INTERVAL"`

	CookieSecure bool   `mapstructure:"AUTH_COOKIE_SECURE"`
	CookieDomain string `mapstructure:"AUTH_COOKIE_DOMAIN"`
	MaxBodyBytes int64  `mapstructure:"AUTH_MAX_BODY_BYTES"`
	TrustProxy   bool   `mapstructure:"AUTH_TRUST_PROXY"`

	PasswordMinLength int    `mapstructure:"PASSWORD_MIN_LENGTH"`
	PasswordMaxLength int    `mapstructure:"PASSWORD_MAX_LENGTH"`
	Argon2MemoryKiB   uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()
	_ = v.BindEnv("APP_ENV", "APP_ENV", "NODE_ENV")

	pw := password.DefaultConfig()
	sess := session.DefaultConfig()
	api := authapi.DefaultConfig()

	v.SetDefault("PORT", 2000)
	v.SetDefault("HTTP_ADDR", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("API_VERSION", "v1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "authcore")

	v.SetDefault("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	v.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_MAX_HEADER_BYTES", 1<<20)

	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{})
	v.SetDefault("CORS_ALLOW_CREDENTIALS", true)
	v.SetDefault("CORS_MAX_AGE_SECONDS", 600)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_KEY_PREFIX", "authcore")
	v.SetDefault("READINESS_REQUIRE_DB", false)

	v.SetDefault("AUTH_SESSION_STORE", "")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "7d")
	v.SetDefault("AUTH_TOKEN_ISSUER", sess.Issuer)
	v.SetDefault("AUTH_FINGERPRINT_KEY", "")
	v.SetDefault("AUTH_STORE_TIMEOUT", sess.StoreTimeout)
	v.SetDefault("AUTH_SESSION_REAP_INTERVAL", time.Duration(0))

	v.SetDefault("AUTH_COOKIE_SECURE", api.Cookie.Secure)
	v.SetDefault("AUTH_COOKIE_DOMAIN", "")
	v.SetDefault("AUTH_MAX_BODY_BYTES", api.MaxBodyBytes)
	v.SetDefault("AUTH_TRUST_PROXY", false)

	v.SetDefault("PASSWORD_MIN_LENGTH", pw.Policy.MinLength)
	v.SetDefault("PASSWORD_MAX_LENGTH", pw.Policy.MaxLength)
	v.SetDefault("ARGON2_MEMORY_KIB", pw.Params.MemoryKiB)
	v.SetDefault("ARGON2_ITERATIONS", pw.Params.Iterations)
	v.SetDefault("ARGON2_PARALLELISM", pw.Params.Parallelism)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.APIVersion = strings.Trim(strings.TrimSpace(c.APIVersion), "/")
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	if c.SessionStore == "" {
		c.SessionStore = c.derivedStore()
	}

	var origins []string
	for _, o := range c.CORSAllowedOrigins {
		// Env values arrive as one comma-separated string.
		for _, part := range strings.Split(o, ",") {
			if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
				origins = append(origins, p)
			}
		}
	}
	c.CORSAllowedOrigins = origins
}

func (c Config) derivedStore() string {
	switch {
	case c.RedisURL != "":
		return StoreRedis
	case c.DatabaseURL != "":
		return StorePostgres
	default:
		return StoreMemory
	}
}

// Validate checks cross-field rules. Secrets are checked when the session
// config is built.
func (c Config) Validate() error {
	switch c.SessionStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: AUTH_SESSION_STORE=postgres requires DATABASE_URL")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: AUTH_SESSION_STORE=redis requires REDIS_URL")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown AUTH_SESSION_STORE %q", c.SessionStore)
	}

	if strings.TrimSpace(c.HTTPAddr) == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.APIVersion == "" {
		return errors.New("config: API_VERSION must not be empty")
	}
	if c.IsProduction() && !c.CookieSecure {
		return errors.New("config: AUTH_COOKIE_SECURE must be true when APP_ENV=production")
	}
	return nil
}

// Addr is the listen address. HTTP_ADDR wins over PORT.
func (c Config) Addr() string {
	if a := strings.TrimSpace(c.HTTPAddr); a != "" {
		return a
	}
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// APIPrefix is the base path of versioned routes, e.g. "/api/v1".
func (c Config) APIPrefix() string { return "/api/" + c.APIVersion }

func (c Config) IsDevelopment() bool { return c.Env == "development" }

func (c Config) IsProduction() bool { return c.Env == "production" }

// SessionConfig builds and validates the session subsystem config.
func (c Config) SessionConfig() (session.Config, error) {
	access, err := session.ParseExpiry(c.AccessTokenExpiry)
	if err != nil {
		return session.Config{}, fmt.Errorf("config: ACCESS_TOKEN_EXPIRY: %w", err)
	}
	refresh, err := session.ParseExpiry(c.RefreshTokenExpiry)
	if err != nil {
		return session.Config{}, fmt.Errorf("config: REFRESH_TOKEN_EXPIRY: %w", err)
	}

	sc := session.DefaultConfig()
	sc.Issuer = strings.TrimSpace(c.TokenIssuer)
	sc.AccessTokenSecret = c.AccessTokenSecret
	sc.RefreshTokenSecret = c.RefreshTokenSecret
	sc.AccessTokenTTL = access
	sc.RefreshTokenTTL = refresh
	sc.FingerprintKey = c.FingerprintKey
	if c.StoreTimeout > 0 {
		sc.StoreTimeout = c.StoreTimeout
	}
	sc.ReapInterval = c.ReapInterval

	if err := sc.Validate(); err != nil {
		return session.Config{}, err
	}
	return sc, nil
}

// APIConfig builds the auth HTTP handler config.
func (c Config) APIConfig() authapi.Config {
	ac := authapi.DefaultConfig()
	ac.TrustProxy = c.TrustProxy
	if c.MaxBodyBytes > 0 {
		ac.MaxBodyBytes = c.MaxBodyBytes
	}
	if c.StoreTimeout > 0 {
		ac.StoreTimeout = c.StoreTimeout
	}
	ac.ExposeErrorDetail = c.IsDevelopment()
	ac.Cookie.Secure = c.CookieSecure
	ac.Cookie.Domain = strings.TrimSpace(c.CookieDomain)
	return ac
}

// PasswordConfig builds and checks the password hashing config.
func (c Config) PasswordConfig() (password.Config, error) {
	pc := password.DefaultConfig()
	pc.Policy.MinLength = c.PasswordMinLength
	pc.Policy.MaxLength = c.PasswordMaxLength
	pc.Params.MemoryKiB = c.Argon2MemoryKiB
	pc.Params.Iterations = c.Argon2Iterations
	pc.Params.Parallelism = c.Argon2Parallelism
	if err := pc.Check(); err != nil {
		return password.Config{}, fmt.Errorf("config: %w", err)
	}
	return pc, nil
}
