package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global logger
func SetupLogging(cfg *Config) {
	setupLogging(cfg, os.Stderr)
}

func setupLogging(cfg *Config, out io.Writer) {
	// Parse log level
	level := ParseLogLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Debug {
		// Pretty logging for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().Caller().Logger()
		return
	}

	// JSON logging for production
	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Logger()
}

// ParseLogLevel converts a string log level to zerolog.Level
func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
