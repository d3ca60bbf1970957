// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and local state for
// mastra-tui.
//
// Supports TOML configuration with sensible defaults, environment
// variable overrides, and validation.
//
// Configuration file location (in order of precedence):
//   - ~/.mastra-tui/config.toml
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/mastra-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mastra-tui configuration.
type Config struct {
	// Version of the config schema.
	Version string `toml:"version"`

	// Server configuration
	Server ServerConfig `toml:"server"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// History (local archive) configuration
	History HistoryConfig `toml:"history"`
}

// ServerConfig describes the Mastra server to talk to.
type ServerConfig struct {
	// BaseURL is the Mastra server base URL.
	BaseURL string `toml:"base_url"`
	// DefaultAgent is selected at startup when set.
	DefaultAgent string `toml:"default_agent"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme selects the color theme: "dark" or "light".
	Theme string `toml:"theme"`
	// ShowTimestamps renders message timestamps in the transcript.
	ShowTimestamps bool `toml:"show_timestamps"`
}

// HistoryConfig controls the local conversation archive.
type HistoryConfig struct {
	// Enabled toggles local archiving of finished conversations.
	Enabled bool `toml:"enabled"`
	// Path overrides the archive database location
	// (empty = ~/.mastra-tui/history.db).
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// ErrInvalidConfig indicates the configuration failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			BaseURL: "http://localhost:4111",
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowTimestamps: false,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("%w: server.base_url is empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: server.base_url %q is not an http(s) URL", ErrInvalidConfig, c.Server.BaseURL)
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("%w: ui.theme must be dark or light, got %q", ErrInvalidConfig, c.UI.Theme)
	}
	return nil
}

// =============================================================================
// LOADING AND SAVING
// =============================================================================

var (
	configDirOnce sync.Once
	configDirPath string
)

// Dir returns the mastra-tui config directory, creating it on first use.
func Dir() string {
	configDirOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			configDirPath = ".mastra-tui"
		} else {
			configDirPath = filepath.Join(home, ".mastra-tui")
		}
		_ = os.MkdirAll(configDirPath, 0700)
	})
	return configDirPath
}

// Path returns the config file path inside Dir.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the configuration from path, falling back to defaults when
// the file does not exist, then applies environment overrides and
// validates. An empty path uses the default location.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration atomically.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// applyEnvOverrides lets the environment win over the file for the
// settings that matter when pointing the client at another server.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MASTRA_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("MASTRA_DEFAULT_AGENT"); v != "" {
		cfg.Server.DefaultAgent = v
	}
	if v := os.Getenv("MASTRA_TUI_THEME"); v != "" {
		cfg.UI.Theme = v
	}
}
