// Package logging builds the structured loggers used across the game server.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON slog logger at level writing to stdout. Invalid levels
// fall back to info. attrs are attached to every record, typically the app
// name and environment.
func New(level string, attrs ...any) *slog.Logger {
	return NewWithWriter(os.Stdout, level, attrs...)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, attrs ...any) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}

// Discard returns a logger that drops all output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
