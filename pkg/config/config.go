// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// Repair policy
	RepairTrailingColumns int

	// HTTP transport
	ListenAddr string

	// Audit sink; Driver is empty when auditing is disabled
	Audit *AuditConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables.
// Variables from a .env file in the working directory are loaded first when
// the file exists; variables already set in the environment win.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{
		// Default values
		RepairTrailingColumns: getEnvAsInt("REPAIR_TRAILING_COLUMNS", 3),
		ListenAddr:            getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
	}

	auditConfig, err := LoadAuditConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load audit configuration: %w", err)
	}
	cfg.Audit = auditConfig

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.RepairTrailingColumns < 0 {
		return errors.New("repair trailing columns cannot be negative")
	}

	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	if c.Audit == nil {
		return errors.New("audit configuration is required")
	}

	return c.Audit.Validate()
}

// loadDotEnv loads a .env file, ignoring a missing one
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
