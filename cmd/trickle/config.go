package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the TOML configuration for the trickle command.
type Config struct {
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`

	RenderIntervalMS int `toml:"render_interval_ms"`
	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
	IdleTimeoutMS    int `toml:"idle_timeout_ms"`
	MaxAttempts      int `toml:"max_attempts"`

	DatabasePath string `toml:"database_path"`
	LogPath      string `toml:"log_path"`
	ProbeAddress string `toml:"probe_address"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://api.openai.com/v1",
		Model:            "gpt-4o-mini",
		APIKeyEnv:        "OPENAI_API_KEY",
		RenderIntervalMS: 50,
		MaxAttempts:      3,
		DatabasePath:     filepath.Join(stateDir(), "responses.db"),
		LogPath:          filepath.Join(stateDir(), "trickle.log"),
		ProbeAddress:     "1.1.1.1:443",
	}
}

// LoadConfig reads the TOML file at path over the defaults. A missing
// file at the default path is not an error.
func LoadConfig(path string, defaultPath bool) (Config, error) {
	cfg := DefaultConfig()
	_, err := toml.DecodeFile(path, &cfg)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && defaultPath:
		// No config file; run on defaults.
	default:
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url must not be empty")
	}
	if c.Model == "" {
		return errors.New("config: model must not be empty")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("config: max_tokens must be non-negative, got %d", c.MaxTokens)
	}
	if c.RenderIntervalMS < 0 {
		return fmt.Errorf("config: render_interval_ms must be non-negative, got %d", c.RenderIntervalMS)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config: max_attempts must be non-negative, got %d", c.MaxAttempts)
	}
	return nil
}

// RenderInterval returns the render throttle as a duration.
func (c Config) RenderInterval() time.Duration {
	return time.Duration(c.RenderIntervalMS) * time.Millisecond
}

// ConnectTimeout returns the first-event window as a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// IdleTimeout returns the between-events window as a duration.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".trickle")
}

func defaultConfigPath() string {
	return filepath.Join(stateDir(), "config.toml")
}
