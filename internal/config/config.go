package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// DataFile is the JSON file backing the appointment store.
	DataFile string

	// Conversation memory tuning.
	SessionTTL     time.Duration
	HistoryLimit   int
	EvictionPeriod time.Duration

	// Expiry janitor: cleanup runs every CleanupInterval, but the loop polls
	// at CleanupPoll so shutdown is observed promptly.
	CleanupInterval time.Duration
	CleanupPoll     time.Duration

	// OpenAI-backed language capabilities. When the key is empty the
	// deterministic resolver runs alone.
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAITimeout time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DataFile:           getEnv("DATA_FILE", "appointment_data.json"),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		HistoryLimit:       getEnvAsInt("SESSION_HISTORY_LIMIT", 20),
		EvictionPeriod:     getEnvAsDuration("SESSION_EVICTION_PERIOD", 30*time.Minute),
		CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 6*time.Hour),
		CleanupPoll:        getEnvAsDuration("CLEANUP_POLL", 30*time.Second),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAITimeout:      getEnvAsDuration("OPENAI_TIMEOUT", 15*time.Second),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
