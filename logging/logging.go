// Package logging - builds the zerolog loggers shared by the pipeline, the
// detectors and the service layer.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the logger output.
type Config struct {
	// Level is a zerolog level name; unknown or empty names mean info.
	Level string
	// Pretty switches to the human readable console writer.
	Pretty bool
	// Service is attached to every event as the "service" field.
	Service string
}

// New creates a logger writing to stdout.
//
// Arguments:
//   - cfg: The logger configuration.
//
// Returns:
//   - zerolog.Logger: A logger with timestamps and the service field.
//
// Example:
//
// ```go
//
//	logger := logging.New(logging.Config{Level: "debug", Service: "vision"})
//	logger.Info().Msg("ready")
//
// ```
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	return ctx.Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
