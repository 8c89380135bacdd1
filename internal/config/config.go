// Package config loads the render service configuration from the
// environment, optionally overlaid on a YAML file named by FORMRT_CONFIG.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort        string        `yaml:"http_port"`
	MongoURI        string        `yaml:"mongo_uri"` // Empty = in-memory form store
	MongoDatabase   string        `yaml:"mongo_database"`
	RedisAddr       string        `yaml:"redis_addr"` // Empty = in-process layout cache
	LayoutCacheTTL  time.Duration `yaml:"layout_cache_ttl"`
	LayoutCacheSize int           `yaml:"layout_cache_size"`
	LogLevel        string        `yaml:"log_level"`
	LogPretty       bool          `yaml:"log_pretty"`
	Tracing         bool          `yaml:"tracing"`
	CORSOrigins     string        `yaml:"cors_origins"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		HTTPPort:        "8080",
		MongoDatabase:   "formrt",
		LayoutCacheTTL:  10 * time.Minute,
		LayoutCacheSize: 1024,
		LogLevel:        "info",
		CORSOrigins:     "*",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// FORMRT_CONFIG if set, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("FORMRT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.RedisAddr = strings.TrimPrefix(getEnv("REDIS_ADDR", cfg.RedisAddr), "redis://")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)

	var err error
	if cfg.LayoutCacheTTL, err = getEnvDuration("LAYOUT_CACHE_TTL", cfg.LayoutCacheTTL); err != nil {
		return nil, err
	}
	if cfg.LayoutCacheSize, err = getEnvInt("LAYOUT_CACHE_SIZE", cfg.LayoutCacheSize); err != nil {
		return nil, err
	}
	if cfg.LogPretty, err = getEnvBool("LOG_PRETTY", cfg.LogPretty); err != nil {
		return nil, err
	}
	if cfg.Tracing, err = getEnvBool("TRACING_ENABLED", cfg.Tracing); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
