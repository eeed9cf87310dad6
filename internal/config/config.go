package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the reference server
type Config struct {
	// Server Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Auth Configuration
	Auth AuthConfig

	// Janitor Configuration
	Janitor JanitorConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token and cookie configuration
type AuthConfig struct {
	JWTSecret         string
	ExpirationMinutes int
	CookieSecure      bool
}

// JanitorConfig holds background maintenance configuration
type JanitorConfig struct {
	// Schedule is a standard cron expression or descriptor such as "@every 1h"
	Schedule string
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

	expiration := 60
	if raw := os.Getenv("JWT_EXPIRATION_MINUTES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES %q: must be a positive integer", raw)
		}
		expiration = n
	}

	secure := false
	if raw := os.Getenv("COOKIE_SECURE"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid COOKIE_SECURE %q: %w", raw, err)
		}
		secure = b
	}

	schedule := getEnv("TOKEN_PURGE_SCHEDULE", "@every 1h")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_PURGE_SCHEDULE %q: %w", schedule, err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8000"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "taskwiz.sqlite"),
		},
		Auth: AuthConfig{
			JWTSecret:         secret,
			ExpirationMinutes: expiration,
			CookieSecure:      secure,
		},
		Janitor: JanitorConfig{
			Schedule: schedule,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
