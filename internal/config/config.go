// Package config loads the shell's TOML configuration file.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/vasic-digital/LLMsVerifier/internal/logger"
	"github.com/vasic-digital/LLMsVerifier/internal/supervisor"
)

// Defaults for the shell's own HTTP surface.
const (
	DefaultListen   = "127.0.0.1:8091"
	DefaultBasePath = "/api"
)

// Config represents the top-level TOML structure:
//
//	[backend]
//	path = "/opt/llm-verifier/bin/llm-verifier"
//	port = 0
//	health_timeout = "5s"
//
//	[log]
//	dir = "/var/log/llm-verifier"
//
//	[server]
//	listen = "127.0.0.1:8091"
//
//	[metrics]
//	enabled = true
//
//	[history]
//	dsn = "sqlite:///var/lib/llm-verifier/history.db"
type Config struct {
	Backend supervisor.Spec `toml:"backend" mapstructure:"backend"`
	Log     logger.Config   `toml:"log" mapstructure:"log"`
	Server  ServerConfig    `toml:"server" mapstructure:"server"`
	Metrics MetricsConfig   `toml:"metrics" mapstructure:"metrics"`
	History HistoryConfig   `toml:"history" mapstructure:"history"`
}

// ServerConfig configures the shell's command surface.
type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

// MetricsConfig configures the Prometheus endpoint. With Listen empty the
// metrics handler is mounted on the command server itself.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// HistoryConfig configures the lifecycle history sink.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Load reads and validates the TOML file at path. Durations accept Go
// duration strings ("5s", "500ms").
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = DefaultBasePath
	}
	// The top-level [log] section configures the backend's captured
	// stdout/stderr unless the backend section overrides it.
	if c.Backend.Log == (logger.Config{}) {
		c.Backend.Log = c.Log
	}
}

// Validate checks the statically checkable parts of the config.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	return nil
}
