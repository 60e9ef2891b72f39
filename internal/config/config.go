// Package config loads synclog settings from SYNCLOG_* environment variables.
//
// The values become the defaults of the CLI flags; flags given on the command
// line still win.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "SYNCLOG"

// Config holds all synclog configuration.
type Config struct {
	LogLevel string       `envconfig:"LOG_LEVEL" default:"info"`
	Format   string       `envconfig:"FORMAT" default:"text"`
	Stress   StressConfig `envconfig:"STRESS"`
}

// StressConfig holds the workload sizes of the stress command.
type StressConfig struct {
	Writers  int `envconfig:"WRITERS" default:"8"`
	Appends  int `envconfig:"APPENDS" default:"1000"`
	Readers  int `envconfig:"READERS" default:"4"`
	Queues   int `envconfig:"QUEUES" default:"2"`
	Ops      int `envconfig:"OPS" default:"1000"`
	Capacity int `envconfig:"CAPACITY" default:"16"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
// A load failure is logged as a warning on logger.
func LoadOrDefault(logger *slog.Logger) *Config {
	cfg, err := Load()
	if err != nil {
		logger.Warn("invalid environment configuration, using defaults", "error", err)
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Format:   "text",
		Stress: StressConfig{
			Writers:  8,
			Appends:  1000,
			Readers:  4,
			Queues:   2,
			Ops:      1000,
			Capacity: 16,
		},
	}
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", name)
	}
}
