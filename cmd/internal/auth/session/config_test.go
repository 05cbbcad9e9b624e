package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	cases := map[string]time.Duration{
		"15m": 15 * time.Minute,
		"7d":  7 * 24 * time.Hour,
		"1d":  24 * time.Hour,
		"900": 900 * time.Second,
		"36h": 36 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseExpiry(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "-5m", "0", "0d", "xd"} {
		_, err := ParseExpiry(bad)
		require.True(t, errors.Is(err, ErrConfig), bad)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	cases := map[string]func(*Config){
		"missing access secret":  func(c *Config) { c.AccessTokenSecret = "" },
		"missing refresh secret": func(c *Config) { c.RefreshTokenSecret = " " },
		"same secrets":           func(c *Config) { c.RefreshTokenSecret = c.AccessTokenSecret },
		"zero access ttl":        func(c *Config) { c.AccessTokenTTL = 0 },
		"negative refresh ttl":   func(c *Config) { c.RefreshTokenTTL = -time.Second },
		"zero store timeout":     func(c *Config) { c.StoreTimeout = 0 },
		"negative reap interval": func(c *Config) { c.ReapInterval = -time.Minute },
		"short fingerprint key":  func(c *Config) { c.FingerprintKey = "short" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrConfig)
		})
	}
}
