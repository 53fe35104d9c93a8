// Package config loads configuration from environment variables and .env files.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway.
type Config struct {
	// Server
	HTTPPort       int      `env:"HTTP_PORT" envDefault:"8080"`
	Environment    string   `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Retrieval backend
	RetrievalURL     string        `env:"RETRIEVAL_URL" envDefault:"http://localhost:8000"`
	RetrievalTimeout time.Duration `env:"RETRIEVAL_TIMEOUT" envDefault:"30s"`

	// PostgreSQL query history (optional; empty disables it)
	DatabaseURL string `env:"DATABASE_URL"`

	// Auth (optional; empty API key disables auth)
	APIKey      string `env:"API_KEY"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	// Pipeline
	DefaultTopK        int           `env:"DEFAULT_TOP_K" envDefault:"5"`
	MinSimilarity      float64       `env:"MIN_SIMILARITY" envDefault:"0.1"`
	MinUniqueDocuments int           `env:"MIN_UNIQUE_DOCUMENTS" envDefault:"1"`
	SimpleQueryTTL     time.Duration `env:"SIMPLE_QUERY_TTL" envDefault:"600s"`
	ComplexQueryTTL    time.Duration `env:"COMPLEX_QUERY_TTL" envDefault:"300s"`
}

// Load loads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
