// Package logging builds the structured loggers used across jobtitles.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// New creates a text slog.Logger writing to w at the given level
func New(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(NewHandler(level, w))
}

// NewHandler creates the text handler behind New
func NewHandler(level slog.Level, w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", value)
	}
}
