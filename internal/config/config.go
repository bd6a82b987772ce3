package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds server configuration, sourced from environment variables.
type Config struct {
	Port         string
	DBPath       string
	SecureCookie bool
	LogLevel     slog.Level
}

// Load reads configuration from the environment, falling back to defaults
// suitable for local development.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "expenses.db"),
		SecureCookie: getEnvBool("SECURE_COOKIE", false),
		LogLevel:     parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks the configuration and returns an error describing the
// first problem found.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("invalid port %q: must be a number", c.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}

	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(c.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create database directory %q: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
