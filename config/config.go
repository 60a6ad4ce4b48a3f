package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	HTTPAddr string

	// Storage
	DBPath   string
	SeedPath string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Collection configuration
	CollectInterval time.Duration
	ChromeAddr      string
	SeoulAPIKey     string
	SeoulAPIHost    string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	maxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	interval, _ := strconv.Atoi(getEnv("COLLECT_INTERVAL_SECONDS", "86400"))

	return Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DBPath:               getEnv("DB_PATH", "data/dongmoa.db"),
		SeedPath:             getEnv("SEED_PATH", "seed.yaml"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "events"),
		RedisStreamMaxLength: maxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		CollectInterval:      time.Duration(interval) * time.Second,
		ChromeAddr:           getEnv("CHROMEDB_ADDR", ""),
		SeoulAPIKey:          getEnv("SEOUL_API_KEY", ""),
		SeoulAPIHost:         getEnv("SEOUL_API_HOST", "http://openapi.seoul.go.kr:8088"),
		Environment:          getEnv("DONGMOA_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if c.CollectInterval < time.Minute {
		return fmt.Errorf("collect interval too short: %s", c.CollectInterval)
	}
	if c.ChromeAddr != "" {
		if _, err := url.ParseRequestURI(c.ChromeAddr); err != nil {
			return fmt.Errorf("invalid ChromeDB address %q: %w", c.ChromeAddr, err)
		}
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
