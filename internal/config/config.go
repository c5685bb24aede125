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
	DataDir  string // Base directory for the save database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Simulation loop
	TickHz float64 // Fixed tick rate of the consuming simulation loop

	// Evolution engine
	StepDt         float64 // Simulated seconds advanced per lookahead step
	MaxDt          float64 // Maximum Euler substep for numerical stability
	LookaheadDepth int     // Ring buffer capacity per subsystem (lookahead steps)
	Lookahead      bool    // When false, the batcher evolves synchronously every tick

	// Backend selection
	Backend             string // "auto", "cpu" or "gpu" - "auto" probes and benchmarks
	BenchmarkIterations int    // Iteration count for the selection microbenchmark

	// Persistence
	AutosaveSchedule string // cron spec for autosave ("" disables)
	S3Bucket         string // Optional S3 bucket for save backups ("" disables)
	S3Region         string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// 1. Check WHEAT_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("WHEAT_DATA_DIR", "")
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
		DataDir:  absDataDir,
		Port:     getEnvAsInt("WHEAT_PORT", 8010),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TickHz: getEnvAsFloat("WHEAT_TICK_HZ", 10.0),

		StepDt:         getEnvAsFloat("WHEAT_STEP_DT", 0.1),
		MaxDt:          getEnvAsFloat("WHEAT_MAX_DT", 0.02),
		LookaheadDepth: getEnvAsInt("WHEAT_LOOKAHEAD_DEPTH", 5),
		Lookahead:      getEnvAsBool("WHEAT_LOOKAHEAD", true),

		Backend:             getEnv("WHEAT_BACKEND", "auto"),
		BenchmarkIterations: getEnvAsInt("WHEAT_BENCHMARK_ITERATIONS", 200),

		AutosaveSchedule: getEnv("WHEAT_AUTOSAVE_SCHEDULE", "@every 5m"),
		S3Bucket:         getEnv("WHEAT_S3_BUCKET", ""),
		S3Region:         getEnv("WHEAT_S3_REGION", "us-east-1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is internally consistent
func (c *Config) Validate() error {
	if c.TickHz <= 0 {
		return fmt.Errorf("tick rate must be positive, got %v", c.TickHz)
	}
	if c.StepDt <= 0 {
		return fmt.Errorf("step dt must be positive, got %v", c.StepDt)
	}
	if c.MaxDt <= 0 || c.MaxDt > c.StepDt {
		return fmt.Errorf("max dt must be in (0, step dt], got %v", c.MaxDt)
	}
	if c.LookaheadDepth < 1 {
		return fmt.Errorf("lookahead depth must be at least 1, got %d", c.LookaheadDepth)
	}
	switch c.Backend {
	case "auto", "cpu", "gpu":
	default:
		return fmt.Errorf("unknown backend %q (want auto, cpu or gpu)", c.Backend)
	}
	return nil
}

// SavePath returns the absolute path of the save database.
func (c *Config) SavePath() string {
	return filepath.Join(c.DataDir, "saves.db")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
