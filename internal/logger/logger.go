// Package logger builds the structured logger the client hands to every
// component. It wraps the standard library "log/slog" package to ensure
// consistent formatting (JSON or Text) and level management across the SDK.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New creates a *slog.Logger writing to os.Stdout with the given level and
// format. Level is one of debug, info, warn, error; format is "text" or
// "json".
func New(level, format string) *slog.Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter creates a *slog.Logger writing to the given io.Writer. This
// is useful for testing or custom output destinations.
func NewWithWriter(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	switch format {
	case "text":
		// TextHandler is human-readable: "time=... level=INFO msg=..."
		handler = slog.NewTextHandler(w, opts)
	case "json":
		// JSONHandler is machine-readable: {"time":"...","level":"INFO",...}
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("component", "verdandi"))
}

// parseLevel converts a string to slog.Level. Defaults to INFO.
func parseLevel(s string) slog.Level {
	var level slog.Level
	// UnmarshalText handles case insensitivity (INFO, info, Info)
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
