package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.zx/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	// DefaultTheme is used when the profile snapshot carries no theme entry.
	DefaultTheme string `toml:"default_theme"`

	Identity  IdentityConfig  `toml:"identity"`
	Assistant AssistantConfig `toml:"assistant"`
}

// IdentityConfig configures the identity provider endpoint.
// An empty BaseURL puts the provider in simulated mode.
type IdentityConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// AssistantConfig configures the generative-text endpoint used by the
// auto-responder.
type AssistantConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	// APIKeyEnv names the environment variable holding the API key, so the
	// key itself never lands in the config file.
	APIKeyEnv string `toml:"api_key_env"`
}

// Defaults returns the config used when no config file exists.
func Defaults() *Config {
	return &Config{
		DefaultTheme: "light",
		Assistant: AssistantConfig{
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			Model:     "gemini-flash",
			APIKeyEnv: "ZX_ASSISTANT_API_KEY",
		},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefaults reads config from path, falling back to Defaults when the
// file is missing or malformed.
func LoadOrDefaults(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Defaults()
	}
	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = "light"
	}
	return cfg
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
