// Package config loads the settings shared by the client and the server from
// the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Rows    int
	Cols    int
	Tick    time.Duration
	Address string
	Name    string
	LogFile string
	Debug   bool
}

// Load reads the given env files, or .env when none is given, and builds a
// Config from the environment. Missing files are not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Rows:    getEnvAsInt("TETRIS_ROWS", 20),
		Cols:    getEnvAsInt("TETRIS_COLS", 10),
		Tick:    getEnvAsDuration("TETRIS_TICK", 300*time.Millisecond),
		Address: getEnv("TETRIS_ADDR", "localhost:9000"),
		Name:    getEnv("TETRIS_NAME", os.Getenv("USER")),
		LogFile: os.Getenv("TETRIS_LOG_FILE"),
		Debug:   getEnvAsBool("DEBUG", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("invalid stack size %dx%d: rows and columns must be positive", c.Rows, c.Cols)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("invalid tick %s: must be positive", c.Tick)
	}
	if c.Address == "" {
		return errors.New("missing server address")
	}
	return nil
}

// LogLevel returns the slog level for the Debug setting.
func (c *Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
