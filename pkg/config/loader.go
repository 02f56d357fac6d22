package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a file path and applies environment variable overrides.
// The file format is chosen by extension: .json, .yaml/.yml or .toml.
// Validation is deferred to allow caller overrides to be applied first.
func Load(configPath string) (*Config, error) {
	// Start with default config
	cfg := DefaultConfig()

	// If config path is provided, load from file
	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Apply environment variable overrides
	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnvironment loads configuration from defaults and environment
// variables only
func LoadFromEnvironment() (*Config, error) {
	return Load("")
}

// loadFromFile decodes the file at path over cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigFileNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}

	if cfg.DefaultHeaders == nil {
		cfg.DefaultHeaders = map[string]string{}
	}
	return nil
}

// applyEnvironmentOverrides applies RESTMODEL_* environment variables.
// Unset variables leave the current values untouched.
func applyEnvironmentOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}
