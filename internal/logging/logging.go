// Package logging builds the slog loggers used across focusmon.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"focusmon/internal/config"
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New returns a logger writing to w in the given format ("json" or "text").
// Unknown levels fall back to info.
func New(w io.Writer, format, level string) *slog.Logger {
	lvl, _ := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Console is the logger for interactive commands: text on stderr.
func Console(cfg config.LogConfig) *slog.Logger {
	return New(os.Stderr, "text", cfg.Level)
}

// OpenFile appends to the configured log file and returns a logger for it
// together with the file, which the caller closes.
func OpenFile(cfg config.LogConfig) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, cfg.Format, cfg.Level), f, nil
}
