package config

import (
	"flag"
	"os"
	"time"

	"github.com/quizzyapp/quizzy-backend/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":4004")
//	-o string   application origin for emailed links
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret for access tokens
//	-f string   JWT HMAC secret for refresh tokens
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-p          production mode (Secure cookies)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes and then converted to
// time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-o", "-d", "-s", "-f", "-t", "-r", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.AppOrigin, "o", config.AppOrigin, "application origin for emailed links")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "access token secret key")
	fs.StringVar(&config.JWTRefreshSecret, "f", config.JWTRefreshSecret, "refresh token secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.BoolVar(&config.Production, "p", config.Production, "production mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
