// Configuration struct and YAML loader for the recrawl service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all recrawl service configuration.
type Config struct {
	// PageDBPath is the SQLite file of the page metadata store.
	PageDBPath string `yaml:"pagedb_path"`
	// SchedulePath is the schedule directory. Empty derives
	// "<pagedb_path>_freqs".
	SchedulePath string `yaml:"schedule_path"`
	// Persist keeps the schedule directory on shutdown.
	Persist bool `yaml:"persist"`
	// Margin is the fractional earliness slack; negative disables
	// backpressure.
	Margin float32 `yaml:"margin"`
	// MaxNCrawls caps per-page lifetime crawls. 0 = unlimited.
	MaxNCrawls uint64 `yaml:"max_n_crawls"`
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Load LoadConfig `yaml:"load"`
}

// LoadConfig holds the load-simple parameters.
type LoadConfig struct {
	FreqDefault float32 `yaml:"freq_default"`
	FreqScale   float32 `yaml:"freq_scale"`
}

func (c *Config) defaults() {
	if c.PageDBPath == "" {
		c.PageDBPath = "recrawl.db"
	}
	if c.Listen == "" {
		c.Listen = ":8090"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Load.FreqDefault == 0 {
		c.Load.FreqDefault = 0.1
	}
}

func (c *Config) logLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads a YAML config file and applies environment
// overrides. An empty path yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Persist: true, Margin: -1}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("RECRAWL_PAGEDB"); v != "" {
		cfg.PageDBPath = v
	}
	if v := os.Getenv("RECRAWL_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("RECRAWL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.defaults()
	return cfg, nil
}
