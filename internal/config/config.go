package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Upstream Hypixel API
	HypixelAPIURL string

	// Background fetch scheduling
	FetchIntervalMinutes int
	PageDelaySeconds     float64
	RetryDelaySeconds    int

	// Logging
	LogLevel string
	LogFile  string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "db/skyblock.db"),
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("ENVIRONMENT", "development"),

		HypixelAPIURL: getEnv("HYPIXEL_API_URL", "https://api.hypixel.net/v2/skyblock"),

		FetchIntervalMinutes: getEnvInt("FETCH_INTERVAL_MINUTES", 20),
		PageDelaySeconds:     getEnvFloat("PAGE_DELAY_SECONDS", 2.0),
		RetryDelaySeconds:    getEnvInt("RETRY_DELAY_SECONDS", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
