package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the server.
type Config struct {
	// HTTP
	Port      string
	StaticDir string

	// Persistence
	StateFile            string
	HistoryDatabase      string
	HistoryRetentionDays int

	// Feeds
	AlertsURL    string
	TripFeedURLs []string
	FetchTimeout time.Duration
	FetchWorkers int

	// Refresh cache
	CacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		StaticDir: getEnv("STATIC_DIR", ""),

		StateFile:            getEnv("STATE_FILE", "data/state.json"),
		HistoryDatabase:      getEnv("HISTORY_DATABASE", "data/history.db"),
		HistoryRetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 7),

		AlertsURL:    getEnv("ALERTS_URL", "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/camsys%2Fsubway-alerts"),
		TripFeedURLs: getEnvList("TRIP_FEED_URLS"),
		FetchTimeout: time.Duration(getEnvInt("FETCH_TIMEOUT", 8)) * time.Second,
		FetchWorkers: getEnvInt("FETCH_WORKERS", 6),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL", 60)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList parses a comma-separated variable; an unset or empty
// variable yields nil so callers can fall back to their defaults.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
