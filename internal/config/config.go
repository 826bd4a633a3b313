// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the recommendation service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	GeminiAPIKey string
	GeminiModel  string

	AdzunaAppID   string
	AdzunaAppKey  string
	AdzunaCountry string // fallback country for Adzuna queries, e.g. "pl", "gb", "us"
	JoobleAPIKey  string

	RetentionDays      int // catalog listings older than this are pruned
	PruneIntervalHours int // how often the retention cron fires
	DailyQuota         int // recommendation runs per user per day, 0 = unlimited

	JSONLogs bool
	Debug    bool
}

// Load reads a local .env (when present) and the environment, returning a
// validated Config.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set by the platform.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	retention, err := positiveInt("CATALOG_RETENTION_DAYS", 60)
	if err != nil {
		return nil, err
	}

	pruneInterval, err := positiveInt("PRUNE_INTERVAL_HOURS", 24)
	if err != nil {
		return nil, err
	}

	quota, err := nonNegativeInt("DAILY_QUOTA", 0)
	if err != nil {
		return nil, err
	}

	country := os.Getenv("ADZUNA_COUNTRY")
	if country == "" {
		country = "pl"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		GeminiAPIKey:       geminiKey,
		GeminiModel:        os.Getenv("GEMINI_MODEL"),
		AdzunaAppID:        os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:       os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:      country,
		JoobleAPIKey:       os.Getenv("JOOBLE_API_KEY"),
		RetentionDays:      retention,
		PruneIntervalHours: pruneInterval,
		DailyQuota:         quota,
		JSONLogs:           os.Getenv("LOG_JSON") == "true",
		Debug:              os.Getenv("DEBUG") == "true",
	}, nil
}

func positiveInt(name string, fallback int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}

func nonNegativeInt(name string, fallback int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, s)
	}
	return v, nil
}
