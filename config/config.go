package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the interpreter process. The database
// name and credentials are not part of it: those arrive on the wire with the
// first "open" command.
type Config struct {
	Environment     string
	DBHost          string
	DBPort          string
	DBSSLMode       string
	SchemaFile      string
	OrganizerSecret string
}

// Load loads configuration from environment variables.
// It attempts to load from .env file if not in production.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// In production the .env file might not exist; we rely on system
	// environment variables there.
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found or couldn't be loaded: %v", err)
		}
	}

	cfg := &Config{
		Environment:     env,
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBSSLMode:       os.Getenv("DB_SSLMODE"),
		SchemaFile:      os.Getenv("SCHEMA_FILE"),
		OrganizerSecret: os.Getenv("ORGANIZER_SECRET"),
	}

	// Defaults match a local development database.
	if cfg.DBHost == "" {
		cfg.DBHost = "localhost"
	}
	if cfg.DBPort == "" {
		cfg.DBPort = "5432"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.SchemaFile == "" {
		cfg.SchemaFile = "./SetUp.sql"
	}

	return cfg, nil
}
