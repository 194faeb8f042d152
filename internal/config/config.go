// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the runs database (always absolute)
	LogLevel         string
	Port             int
	DevMode          bool
	RunRetentionDays int // Stored optimization runs older than this are pruned daily
	OptimizerWorkers int // Worker pool size for optimization dispatch; 0 = NumCPU
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory:
	// 1. COFFER_DATA_DIR environment variable
	// 2. Default to ./data
	// 3. Always resolve to absolute path and ensure it exists
	dataDir := getEnv("COFFER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnvAsInt("PORT", 8090),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		RunRetentionDays: getEnvAsInt("RUN_RETENTION_DAYS", 90),
		OptimizerWorkers: getEnvAsInt("OPTIMIZER_WORKERS", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.RunRetentionDays < 0 {
		return fmt.Errorf("invalid run retention %d: must be >= 0 days", c.RunRetentionDays)
	}
	if c.OptimizerWorkers < 0 {
		return fmt.Errorf("invalid optimizer workers %d: must be >= 0", c.OptimizerWorkers)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
