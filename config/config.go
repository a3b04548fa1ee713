package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port            string
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	EpisodeCacheTTL time.Duration
	LogFile         string
	RateLimitRPM    int
	RateLimitBurst  int
}

// Load reads the configuration from environment variables or defaults.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "3000"),
		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "https://dramabox.sansekai.my.id/api/dramabox"),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		EpisodeCacheTTL: getDuration("EPISODE_CACHE_TTL", 30*time.Minute),
		LogFile:         getEnv("LOG_FILE", ""),
		RateLimitRPM:    getInt("RATE_LIMIT_RPM", 120),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", 30),
	}
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
