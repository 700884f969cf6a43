package config

import (
	"log"
	"os"
	"strconv"
)

const (
	defaultDBPath      = "./slitplan.db"
	defaultPort        = "8080"
	defaultCurrency    = "AUD"
	defaultConcurrency = 4
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath string
	Port   string
	AppEnv string
	// Currency labels cost figures in API responses and exports.
	Currency string
	// MaxCalcConcurrency bounds how many permutation calculations may run
	// at once; the enumeration is CPU-bound.
	MaxCalcConcurrency int
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		DBPath:   os.Getenv("DB_PATH"),
		Port:     os.Getenv("PORT"),
		AppEnv:   os.Getenv("APP_ENV"),
		Currency: os.Getenv("CURRENCY"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}

	cfg.MaxCalcConcurrency = defaultConcurrency
	if raw := os.Getenv("MAX_CALC_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			log.Printf("warning: ignoring invalid MAX_CALC_CONCURRENCY=%q", raw)
		} else {
			cfg.MaxCalcConcurrency = n
		}
	}

	return cfg
}

// IsDev reports whether the app runs in development mode. Development runs
// database migrations on boot; production applies them explicitly.
func (c Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "dev"
}
