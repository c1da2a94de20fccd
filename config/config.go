package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Candle feed
	FeedURL string
	Symbol  string

	// Bar duration in hours (timeframe of the input candles)
	BarHours float64

	// Enabled strategy ids (comma-separated; empty = all registered)
	EnabledStrategies string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/candles.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		FeedURL: getEnv("FEED_URL", ""),
		Symbol:  getEnv("SYMBOL", "BTCUSDT"),

		BarHours: getEnvFloat("BAR_HOURS", 4.0),

		EnabledStrategies: getEnv("ENABLED_STRATEGIES", ""),
	}
}

// ParseStrategies splits EnabledStrategies into a clean id slice.
// Empty result means "all registered strategies".
func (c *Config) ParseStrategies() []string {
	parts := strings.Split(c.EnabledStrategies, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ids = append(ids, p)
	}
	return ids
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("[config] invalid %s=%q, using %.2f", key, v, fallback)
		return fallback
	}
	return f
}
