package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name declared in Config tags.
const EnvPrefix = "GOPHAUTH_"

// dotEnvFile is loaded, when present, before reading the environment.
// Variables already set in the process environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays Config with GOPHAUTH_* environment variables. Unset
// variables leave the current value untouched. Malformed values panic, like
// every other configuration layer.
func parseEnv(config *Config) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
