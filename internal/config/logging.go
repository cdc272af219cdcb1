package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process-wide logger and installs it as zerolog's
// global so package-level logging shares the same sink.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	logger := newLogger(os.Stdout, cfg)
	log.Logger = logger
	return logger
}

// newLogger is split from NewLogger so tests can capture output. An
// unknown level falls back to info rather than silencing the server.
func newLogger(out io.Writer, cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "gatherguru").
		Logger()
}
