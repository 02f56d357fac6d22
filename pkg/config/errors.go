package config

import "errors"

var (
	// ErrMissingAPIBaseURL indicates that the API base URL is not configured
	ErrMissingAPIBaseURL = errors.New("apiBaseUrl is required in configuration")

	// ErrInvalidTimeout indicates a negative timeout
	ErrInvalidTimeout = errors.New("timeoutSeconds must not be negative")

	// ErrInvalidMaxRetries indicates a negative retry count
	ErrInvalidMaxRetries = errors.New("maxRetries must not be negative")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file could not be parsed
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")

	// ErrUnsupportedConfigFormat indicates a config file extension we cannot read
	ErrUnsupportedConfigFormat = errors.New("unsupported configuration file extension")
)
