package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the dev server
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// HTTP Configuration
	HTTP HTTPConfig

	// Session token signing
	Session SessionConfig

	// Demo account and seed data
	Demo DemoConfig

	// Logging Configuration
	Logging LoggingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// HTTPConfig holds listener and CORS settings
type HTTPConfig struct {
	Port        int
	CORSOrigins []string
}

// SessionConfig holds the secret used to sign session tokens.
// An empty secret makes the server generate one at startup.
type SessionConfig struct {
	Secret string
}

// DemoConfig describes the seeded account and catalogue
type DemoConfig struct {
	Email        string
	Password     string
	Name         string
	Company      string
	SeedProducts int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", port)
	}

	seed, err := intEnv("SEED_PRODUCTS", 150)
	if err != nil {
		return nil, err
	}
	if seed < 0 {
		return nil, fmt.Errorf("SEED_PRODUCTS must not be negative: %d", seed)
	}

	return &Config{
		Database: DatabaseConfig{
			URL: stringEnv("DATABASE_URL", "fmcg-dev.sqlite"),
		},
		HTTP: HTTPConfig{
			Port:        port,
			CORSOrigins: splitList(stringEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
		},
		Demo: DemoConfig{
			Email:        stringEnv("DEMO_EMAIL", "demo@fmcg.local"),
			Password:     stringEnv("DEMO_PASSWORD", "demo1234"),
			Name:         stringEnv("DEMO_NAME", "Demo User"),
			Company:      stringEnv("DEMO_COMPANY", "FMCG Demo"),
			SeedProducts: seed,
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "console"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
