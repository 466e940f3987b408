// Package config loads service configuration from the environment,
// falling back to a local .env file via joho/godotenv the way the
// teacher's service layer does for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment-tunable the service needs to boot.
type Config struct {
	Port            string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	JWTSecret       string
	GlobalSolverMS  int
	LogLevel        string
	OriginAllowlist string
}

// Load reads a .env file if present (missing is not an error — production
// deployments set real environment variables instead) and returns a
// populated Config, erroring on an unreadable .env file, a non-integer
// GLOBAL_SOLVER_BUDGET_MS, or a missing required value.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		JWTSecret:       getenv("JWT_SECRET", ""),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		OriginAllowlist: getenv("ORIGIN_ALLOWLIST", "http://localhost:8080"),
	}

	ms, err := strconv.Atoi(getenv("GLOBAL_SOLVER_BUDGET_MS", "250"))
	if err != nil {
		return nil, fmt.Errorf("config: GLOBAL_SOLVER_BUDGET_MS must be an integer: %w", err)
	}
	cfg.GlobalSolverMS = ms

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
