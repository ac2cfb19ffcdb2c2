package hub

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rebuildscope/rebuildscope/internal/export"
	"github.com/rebuildscope/rebuildscope/internal/mcpserver"
	"github.com/rebuildscope/rebuildscope/internal/server"
	"github.com/rebuildscope/rebuildscope/rebuild"
)

// Config is the top-level configuration for the rebuildscope hub.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Engine configures the telemetry engine.
	Engine rebuild.Config `yaml:"engine"`

	// Server configures the ingest and dashboard HTTP server.
	Server server.Config `yaml:"server"`

	// Health configures the Prometheus health metrics server.
	Health export.HealthConfig `yaml:"health"`

	// MCP configures the Model Context Protocol surface.
	MCP mcpserver.Config `yaml:"mcp"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Engine:   rebuild.DefaultConfig(),
		Server: server.Config{
			Addr:        ":8077",
			GeometryTTL: server.DefaultGeometryTTL,
		},
		Health: export.HealthConfig{
			Addr: ":9090",
		},
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	t := c.Engine.Thresholds
	if t.Stable != 0 && t.Warning != 0 && t.Stable >= t.Warning {
		return fmt.Errorf(
			"engine.thresholds.stable must be below engine.thresholds.warning",
		)
	}

	if c.Engine.MediumCutoff != 0 && c.Engine.HighCutoff != 0 &&
		c.Engine.MediumCutoff > c.Engine.HighCutoff {
		return fmt.Errorf(
			"engine.medium_cutoff must not exceed engine.high_cutoff",
		)
	}

	if c.Server.GeometryTTL < 0 {
		return fmt.Errorf("server.geometry_ttl must not be negative")
	}

	return nil
}
