package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvHTTPAddr    = "ZKVAULT_HTTP_ADDR"
	EnvDatabaseDSN = "ZKVAULT_DATABASE_DSN"
	EnvSecretKey   = "ZKVAULT_SECRET_KEY"
	EnvTokenTTL    = "ZKVAULT_TOKEN_TTL"
	EnvLogLevel    = "ZKVAULT_LOG_LEVEL"
)

// dotenvFiles is a test seam; godotenv never overrides variables that are
// already set.
var dotenvFiles = []string{".env"}

// parseEnv overlays cfg with ZKVAULT_* variables. A missing .env file is
// fine; an invalid ZKVAULT_TOKEN_TTL panics like the other config sources.
func parseEnv(cfg *Config) {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				panic(err)
			}
		}
	}

	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv(EnvTokenTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.AccessTokenValidityDuration = d
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}
