/**
 * @description
 * Configuration loader for the Guess BTC backend.
 * Reads environment variables, applies defaults, and validates the critical ones.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 *
 * @notes
 * - Fails fast if DATABASE_URL is missing.
 * - The guess resolution threshold is an explicit config value handed to the
 *   guess service at construction; there is no package-level mutable default.
 */

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lakbychance/guess-btc/internal/logger"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	Coinbase CoinbaseConfig
	Game     GameConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// CoinbaseConfig holds the price oracle endpoints
type CoinbaseConfig struct {
	BaseURL   string // REST API for spot prices
	FeedURL   string // Websocket ticker feed
	ProductID string // e.g. "BTC-USD"
}

// GameConfig holds the game rules that are tunable per deployment
type GameConfig struct {
	// ResolutionThreshold is the minimum age a guess must reach before it is
	// eligible for resolution.
	ResolutionThreshold time.Duration
	// PriceCacheTTL bounds how stale a cached spot price may be when serving
	// btc-value and resolving guesses.
	PriceCacheTTL time.Duration
	// PricePollInterval is the worker's REST fallback sampling interval.
	PricePollInterval time.Duration
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Coinbase: CoinbaseConfig{
			BaseURL:   getEnv("COINBASE_API_URL", "https://api.coinbase.com"),
			FeedURL:   getEnv("COINBASE_FEED_URL", "wss://ws-feed.exchange.coinbase.com"),
			ProductID: getEnv("COINBASE_PRODUCT_ID", "BTC-USD"),
		},
		Game: GameConfig{
			ResolutionThreshold: getEnvAsDuration("GUESS_RESOLUTION_THRESHOLD", 60*time.Second),
			PriceCacheTTL:       getEnvAsDuration("PRICE_CACHE_TTL", 5*time.Second),
			PricePollInterval:   getEnvAsDuration("PRICE_POLL_INTERVAL", 15*time.Second),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Game.ResolutionThreshold <= 0 {
		return fmt.Errorf("GUESS_RESOLUTION_THRESHOLD must be positive")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper to get env var as duration ("60s", "2m", ...)
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Error("Invalid duration %q for %s, using default %s", valueStr, key, fallback)
		return fallback
	}
	return value
}
