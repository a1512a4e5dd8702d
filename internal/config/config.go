package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DBSource        string
	Port            string
	Env             string
	JWTSecret       string
	LogLevel        logrus.Level
	StoreDriver     string
	OverdueSchedule string
}

// Load reads settings from the environment. A .env file in the working
// directory is applied first when present; real environment values win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		DBSource:        os.Getenv("DB_SOURCE"),
		Port:            getEnv("SERVER_PORT", "8080"),
		Env:             getEnv("ENVIRONMENT", "development"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogLevel:        level,
		StoreDriver:     getEnv("STORE_DRIVER", DriverPostgres),
		OverdueSchedule: "@daily",
	}
	// an explicitly empty schedule turns the overdue job off
	if v, ok := os.LookupEnv("OVERDUE_SCHEDULE"); ok {
		cfg.OverdueSchedule = v
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
