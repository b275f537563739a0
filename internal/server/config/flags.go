package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// flagNames lists the short flags handled by parseFlags.
var flagNames = []string{"-a", "-g", "-d", "-k", "-s", "-i", "-t", "-r", "-store", "-redis", "-domain", "-l"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string       HTTP bind address (e.g., ":5501")
//	-g string       gRPC bind address (e.g., ":50051"); empty disables gRPC
//	-d string       PostgreSQL DSN
//	-k string       path to the RSA private key PEM
//	-s string       refresh token HMAC secret
//	-i string       token issuer
//	-t int          access token validity, minutes
//	-r int          refresh token validity, hours
//	-store string   refresh token store: postgres | redis
//	-redis string   redis address
//	-domain string  cookie domain
//	-l string       log level
//
// os.Args is filtered through flagx.FilterArgs first so flags owned by other
// parsers (-c/-config) do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PrivateKeyPath, "k", config.PrivateKeyPath, "RSA private key PEM path")
	fs.StringVar(&config.RefreshTokenSecret, "s", config.RefreshTokenSecret, "refresh token secret")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")

	accessTTL := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()), "refresh token validity (in hours)")

	fs.StringVar(&config.RefreshStore, "store", config.RefreshStore, "refresh token store (postgres|redis)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.CookieDomain, "domain", config.CookieDomain, "cookie domain")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTTL) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTTL) * time.Hour
}
