package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-g", ":6000", "-d", "db", "-k", "/keys/p.pem", "-s", "secret",
				"-i", "iss", "-t", "15", "-r", "48", "-store", "redis", "-redis", "r:6379",
				"-domain", "example.test", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				EndpointAddrGRPC:             ":6000",
				DatabaseDSN:                  "db",
				PrivateKeyPath:               "/keys/p.pem",
				RefreshTokenSecret:           "secret",
				Issuer:                       "iss",
				AccessTokenValidityDuration:  15 * time.Minute,
				RefreshTokenValidityDuration: 48 * time.Hour,
				RefreshStore:                 "redis",
				RedisAddr:                    "r:6379",
				CookieDomain:                 "example.test",
				LogLevel:                     "debug",
			},
		},
		{
			name:        "non-numeric ttl",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func TestParseFlags_IgnoresConfigFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd", "-c", "cfg.yaml", "-i", "from-flag"}
	c := &Config{}
	c.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(c) })
	assert.Equal(t, "from-flag", c.Issuer)
	assert.Equal(t, time.Hour, c.AccessTokenValidityDuration)
}
