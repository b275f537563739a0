package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. It is an
// intermediate DTO: only fields present in the file are copied into Config,
// so a partial file overrides just what it names.
type FileConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http" toml:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc" toml:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn" yaml:"database_dsn" toml:"database_dsn"`
	LogLevel                     *string         `json:"log_level" yaml:"log_level" toml:"log_level"`
	RefreshStore                 *string         `json:"refresh_store" yaml:"refresh_store" toml:"refresh_store"`
	RedisAddr                    *string         `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword                *string         `json:"redis_password" yaml:"redis_password" toml:"redis_password"`
	RedisDB                      *int            `json:"redis_db" yaml:"redis_db" toml:"redis_db"`
	PrivateKeyPath               *string         `json:"private_key_path" yaml:"private_key_path" toml:"private_key_path"`
	RefreshTokenSecret           *string         `json:"refresh_token_secret" yaml:"refresh_token_secret" toml:"refresh_token_secret"`
	Issuer                       *string         `json:"issuer" yaml:"issuer" toml:"issuer"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration" toml:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration" toml:"refresh_token_validity_duration"`
	CookieDomain                 *string         `json:"cookie_domain" yaml:"cookie_domain" toml:"cookie_domain"`
	BcryptCost                   *int            `json:"bcrypt_cost" yaml:"bcrypt_cost" toml:"bcrypt_cost"`
	StoreTimeout                 *timex.Duration `json:"store_timeout" yaml:"store_timeout" toml:"store_timeout"`
	JanitorPeriod                *timex.Duration `json:"janitor_period" yaml:"janitor_period" toml:"janitor_period"`
	MigrateOnStart               *bool           `json:"migrate_on_start" yaml:"migrate_on_start" toml:"migrate_on_start"`
	S3PrivateKeyObject           *string         `json:"s3_private_key_object" yaml:"s3_private_key_object" toml:"s3_private_key_object"`
	S3RootUser                   *string         `json:"s3_root_user" yaml:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password" yaml:"s3_root_password" toml:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket" yaml:"s3_bucket" toml:"s3_bucket"`
	S3Region                     *string         `json:"s3_region" yaml:"s3_region" toml:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint" toml:"s3_base_endpoint"`
}

// decodeFile unmarshals data according to the file extension.
func decodeFile(path string, data []byte, fc *FileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(data, fc)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, fc)
	case ".toml":
		return toml.Unmarshal(data, fc)
	default:
		return fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// parseFile loads values from the file named by the -c or -config flag.
// No flag means no file. An unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	if err := decodeFile(path, data, fc); err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.RefreshStore, fc.RefreshStore)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.RedisPassword, fc.RedisPassword)
	if fc.RedisDB != nil {
		c.RedisDB = *fc.RedisDB
	}
	setString(&c.PrivateKeyPath, fc.PrivateKeyPath)
	setString(&c.RefreshTokenSecret, fc.RefreshTokenSecret)
	setString(&c.Issuer, fc.Issuer)
	if fc.AccessTokenValidityDuration != nil {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration != nil {
		c.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	setString(&c.CookieDomain, fc.CookieDomain)
	if fc.BcryptCost != nil {
		c.BcryptCost = *fc.BcryptCost
	}
	if fc.StoreTimeout != nil {
		c.StoreTimeout = fc.StoreTimeout.Duration
	}
	if fc.JanitorPeriod != nil {
		c.JanitorPeriod = fc.JanitorPeriod.Duration
	}
	if fc.MigrateOnStart != nil {
		c.MigrateOnStart = *fc.MigrateOnStart
	}
	setString(&c.S3PrivateKeyObject, fc.S3PrivateKeyObject)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
