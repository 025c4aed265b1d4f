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
	DataDir           string  // Base directory for all databases (always absolute)
	Port              int     // HTTP port for the dashboard and API
	LogLevel          string  // debug, info, warn, error
	DevMode           bool    // Enables permissive CORS for frontend development
	BaseCurrency      string  // Currency all valuations are expressed in
	RiskFreeRate      float64 // Annual risk-free rate used by Sharpe/Sortino
	DriftThreshold    float64 // Absolute weight drift that triggers a rebalance alert
	InitialInvestment float64 // Notional starting value for the portfolio value series
	SyncSchedule      string  // Cron expression for the daily price sync job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// 1. KOSH_DATA_DIR environment variable
	// 2. ./data next to the working directory
	// Always resolved to an absolute path, created if missing.
	dataDir := getEnv("KOSH_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("KOSH_PORT", 8080),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		BaseCurrency:      getEnv("KOSH_BASE_CURRENCY", "INR"),
		RiskFreeRate:      getEnvAsFloat("KOSH_RISK_FREE_RATE", 0.03),
		DriftThreshold:    getEnvAsFloat("KOSH_DRIFT_THRESHOLD", 0.05),
		InitialInvestment: getEnvAsFloat("KOSH_INITIAL_INVESTMENT", 100000),
		SyncSchedule:      getEnv("KOSH_SYNC_SCHEDULE", "0 30 18 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DriftThreshold <= 0 || c.DriftThreshold >= 1 {
		return fmt.Errorf("drift threshold must be in (0, 1), got %f", c.DriftThreshold)
	}
	if c.InitialInvestment <= 0 {
		return fmt.Errorf("initial investment must be positive, got %f", c.InitialInvestment)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
