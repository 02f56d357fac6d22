// Package config loads client configuration from JSON, YAML or TOML files
// with environment variable overrides, and configures logging.
package config

// Config holds all configuration for API clients
type Config struct {
	APIBaseURL     string            `json:"apiBaseUrl" yaml:"apiBaseUrl" toml:"apiBaseUrl" env:"RESTMODEL_API_BASE_URL"`
	TimeoutSeconds int               `json:"timeoutSeconds" yaml:"timeoutSeconds" toml:"timeoutSeconds" env:"RESTMODEL_TIMEOUT_SECONDS"`
	MaxRetries     int               `json:"maxRetries" yaml:"maxRetries" toml:"maxRetries" env:"RESTMODEL_MAX_RETRIES"`
	DefaultHeaders map[string]string `json:"defaultHeaders,omitempty" yaml:"defaultHeaders,omitempty" toml:"defaultHeaders,omitempty" env:"RESTMODEL_DEFAULT_HEADERS"`
	Debug          bool              `json:"debug" yaml:"debug" toml:"debug" env:"RESTMODEL_DEBUG"`
	LogLevel       string            `json:"logLevel" yaml:"logLevel" toml:"logLevel" env:"RESTMODEL_LOG_LEVEL"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if c.TimeoutSeconds < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:8081",
		TimeoutSeconds: 30,
		MaxRetries:     3,
		DefaultHeaders: map[string]string{},
		Debug:          false,
		LogLevel:       "info",
	}
}
