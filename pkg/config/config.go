// Package config loads parlor's client configuration from a JSON file with
// PARLOR_* environment overrides applied on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	API      APIConfig      `json:"api"`
	Realtime RealtimeConfig `json:"realtime"`
	Log      LogConfig      `json:"log"`
}

type APIConfig struct {
	BaseURL        string `env:"PARLOR_API_BASE_URL"        json:"base_url"`
	TimeoutSeconds int    `env:"PARLOR_API_TIMEOUT_SECONDS" json:"timeout_seconds"`
}

type RealtimeConfig struct {
	SocketURL         string `env:"PARLOR_SOCKET_URL"                  json:"socket_url"`
	MinBackoffSeconds int    `env:"PARLOR_SOCKET_MIN_BACKOFF_SECONDS"  json:"min_backoff_seconds"`
	MaxBackoffSeconds int    `env:"PARLOR_SOCKET_MAX_BACKOFF_SECONDS"  json:"max_backoff_seconds"`
}

type LogConfig struct {
	Level string `env:"PARLOR_LOG_LEVEL" json:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api",
			TimeoutSeconds: 5,
		},
		Realtime: RealtimeConfig{
			SocketURL:         "ws://localhost:5000/ws",
			MinBackoffSeconds: 1,
			MaxBackoffSeconds: 30,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads path if it exists, then applies environment overrides.
// A missing file is not an error; defaults are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Realtime.SocketURL == "" {
		return fmt.Errorf("realtime.socket_url is required")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	return nil
}

// APITimeout returns the REST request timeout as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// MinBackoff returns the realtime reconnect floor.
func (c *Config) MinBackoff() time.Duration {
	return time.Duration(c.Realtime.MinBackoffSeconds) * time.Second
}

// MaxBackoff returns the realtime reconnect ceiling.
func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Realtime.MaxBackoffSeconds) * time.Second
}
