package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	priv, err := keys.Generate(keys.MinRSABits)
	require.NoError(t, err)
	pemBytes, err := keys.EncodePrivateKeyPEM(priv)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "private.pem")
	require.NoError(t, os.WriteFile(path, pemBytes, 0o600))

	c := &config.Config{}
	c.LoadDefaults()
	c.PrivateKeyPath = path
	c.RefreshTokenSecret = strings.Repeat("k", keys.MinRefreshSecretSz)
	return c
}

func TestNewApp_FailsFastOnConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *config.Config)
	}{
		{"missing refresh secret", func(c *config.Config) { c.RefreshTokenSecret = "" }},
		{"short refresh secret", func(c *config.Config) { c.RefreshTokenSecret = "short" }},
		{"missing key file", func(c *config.Config) { c.PrivateKeyPath = filepath.Join(c.PrivateKeyPath, "nope") }},
		{"bcrypt cost too high", func(c *config.Config) { c.BcryptCost = 31 }},
		{"unknown refresh store", func(c *config.Config) { c.RefreshStore = "memcached" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(t)
			tt.modify(c)

			app, err := NewApp(context.Background(), c)
			assert.Nil(t, app)
			assert.ErrorIs(t, err, common.ErrConfigurationFatal)
		})
	}
}

func TestKeySource(t *testing.T) {
	c := validConfig(t)

	src, err := keySource(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, keys.FileSource{Path: c.PrivateKeyPath}, src)

	c.S3PrivateKeyObject = "signing/private.pem"
	src, err = keySource(context.Background(), c)
	require.NoError(t, err)
	s3src, ok := src.(keys.S3Source)
	require.True(t, ok)
	assert.Equal(t, "keys", s3src.Bucket)
	assert.Equal(t, "signing/private.pem", s3src.Key)
	assert.Equal(t, "s3://keys/signing/private.pem", s3src.String())
}
