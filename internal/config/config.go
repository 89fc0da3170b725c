package config

import (
	"fmt"
	"os"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL      string
	Port             string
	LogLevel         string
	PrometheusPort   string
	AuthDomain       string
	AuthAudience     string
	CORSAllowOrigins string
	MigrationsPath   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		Port:             getEnvOrDefault("PORT", "8080"),
		PrometheusPort:   getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		CORSAllowOrigins: getEnvOrDefault("CORS_ALLOW_ORIGINS", "*"),
		MigrationsPath:   getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.AuthDomain = os.Getenv("AUTH_DOMAIN"); cfg.AuthDomain == "" {
		return nil, fmt.Errorf("AUTH_DOMAIN environment variable is required")
	}

	if cfg.AuthAudience = os.Getenv("AUTH_AUDIENCE"); cfg.AuthAudience == "" {
		return nil, fmt.Errorf("AUTH_AUDIENCE environment variable is required")
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
