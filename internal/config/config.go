// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the Polymates tracker.
type Config struct {
	// Polymarket data API
	TradesBaseURL  string
	MarketsBaseURL string
	APIKey         string
	TradeLimit     int

	// ENS resolution
	ENSBaseURL string

	// Live user-channel WebSocket
	UserWSURL    string
	EnableLiveWS bool

	// Feed cache
	CacheTTL time.Duration

	// Local state
	StatePath string

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		TradesBaseURL:  getEnv("POLYMARKET_TRADES_URL", "https://data-api.polymarket.com/trades"),
		MarketsBaseURL: getEnv("POLYMARKET_MARKETS_URL", "https://data-api.polymarket.com/markets"),
		APIKey:         getEnv("POLYMARKET_API_KEY", ""),
		TradeLimit:     getEnvInt("MAX_TRADES_PER_WALLET", 20),

		ENSBaseURL: getEnv("ENS_RESOLVER_URL", "https://api.ensideas.com/ens/resolve"),

		UserWSURL:    getEnv("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/"),
		EnableLiveWS: getEnvBool("ENABLE_LIVE_WS", false),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_MS", 30000)) * time.Millisecond,

		StatePath: getEnv("STATE_PATH", "./data/polymates.json"),

		EnableTUI:     getEnvBool("ENABLE_TUI", true),
		UIRefreshRate: time.Duration(getEnvInt("UI_REFRESH_MS", 500)) * time.Millisecond,

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.TradesBaseURL == "" {
		return fmt.Errorf("POLYMARKET_TRADES_URL is required")
	}

	if c.MarketsBaseURL == "" {
		return fmt.Errorf("POLYMARKET_MARKETS_URL is required")
	}

	if c.ENSBaseURL == "" {
		return fmt.Errorf("ENS_RESOLVER_URL is required")
	}

	if c.TradeLimit < 1 {
		return fmt.Errorf("MAX_TRADES_PER_WALLET must be at least 1")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_MS must be positive")
	}

	if c.StatePath == "" {
		return fmt.Errorf("STATE_PATH is required")
	}

	return nil
}

// MaskedAPIKey returns the API key with most characters hidden for logging.
func (c *Config) MaskedAPIKey() string {
	return maskSecret(c.APIKey)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
