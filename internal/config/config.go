// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/repochat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete repochat configuration.
type Config struct {
	// API contains backend connection settings.
	API APIConfig `toml:"api"`

	// Data contains local state settings.
	Data DataConfig `toml:"data"`

	// UI contains terminal UI settings.
	UI UIConfig `toml:"ui"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	// BaseURL is the base URL of the API gateway, e.g. "http://localhost:8080/api".
	BaseURL string `toml:"base_url"`

	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`

	// PollIntervalSecs is the repository index-status polling interval in seconds.
	PollIntervalSecs int `toml:"poll_interval_secs"`

	// HistoryLimit is the number of messages fetched when opening a chat.
	// The backend caps this at 200.
	HistoryLimit int `toml:"history_limit"`
}

// DataConfig contains local state settings.
type DataConfig struct {
	// Dir is the directory for the auth cache, local history database, and
	// logs. Default: ~/.repochat
	Dir string `toml:"dir"`

	// HistoryEnabled toggles the local SQLite chat history cache.
	HistoryEnabled bool `toml:"history_enabled"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme selects the color theme: "auto", "dark", or "light".
	Theme string `toml:"theme"`

	// ShowSources toggles the source-citation block under assistant replies.
	ShowSources bool `toml:"show_sources"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:          "http://localhost:8080/api",
			TimeoutSecs:      30,
			PollIntervalSecs: 4,
			HistoryLimit:     200,
		},
		Data: DataConfig{
			Dir:            defaultDataDir(),
			HistoryEnabled: true,
		},
		UI: UIConfig{
			Theme:       "auto",
			ShowSources: true,
		},
	}
}

// defaultDataDir returns ~/.repochat, or a relative fallback when the home
// directory cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repochat"
	}
	return filepath.Join(home, ".repochat")
}

// Timeout returns the request timeout as a duration.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PollInterval returns the status polling interval as a duration.
func (c *APIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from ~/.repochat/config.toml, applies
// environment overrides, validates, and returns it. A missing file is not an
// error; defaults are used.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(defaultDataDir(), "config.toml"))
}

// LoadFrom reads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults apply.
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config values from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("REPOCHAT_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("REPOCHAT_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for invalid values, clamping soft limits
// and rejecting hard errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid api.base_url %q: must be an http(s) URL", c.API.BaseURL)
	}

	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = 30
	}
	if c.API.PollIntervalSecs <= 0 {
		c.API.PollIntervalSecs = 4
	}
	if c.API.HistoryLimit <= 0 || c.API.HistoryLimit > 200 {
		c.API.HistoryLimit = 200
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("invalid ui.theme %q: must be auto, dark, or light", c.UI.Theme)
	}

	if c.Data.Dir == "" {
		c.Data.Dir = defaultDataDir()
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to ~/.repochat/config.toml atomically.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(c.Data.Dir, "config.toml"))
}

// SaveTo writes the configuration to an explicit path atomically.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0644)
}
