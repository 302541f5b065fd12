// Package logging builds the application's zerolog logger: console
// output, optional append-only file output, and per-component
// sub-loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Config holds logger settings.
type Config struct {
	Level string // "debug", "info", "warn", "error" (default: info)
	File  string // optional log file path; empty disables file output
}

// New creates the root logger. The returned closer is non-nil only when
// a log file was opened.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := parseLevel(cfg.Level)

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	var (
		w      io.Writer = console
		closer io.Closer
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(console, file)
		closer = file
	}

	logger := zerolog.New(w).Level(level).With().
		Timestamp().
		Str("app", "nanban").
		Logger()
	return logger, closer, nil
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
