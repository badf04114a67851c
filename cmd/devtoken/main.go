// Command devtoken mints an HS256 token for a floor operator, for local use
// against the till API. Production tokens come from the restaurant's login
// service.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/config"
	"github.com/isaqueitalo/restaurante-1.0/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	operator := flag.String("operator", "", "operator name recorded as the actor")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *operator == "" {
		log.Fatal().Msg("-operator is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	now := time.Now()
	claims := middleware.OperatorClaims{
		Username: *operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(signed)
}
