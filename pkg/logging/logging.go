// Package logging configures structured logging with log/slog.
//
// Usage:
//
//	logging.Setup("text", slog.LevelDebug) // colored output for terminals
//	logging.Setup("json", slog.LevelInfo)  // one JSON object per line
//
// Text output uses tint for colors. JSON output suits log collectors.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger writing to stderr.
func Setup(format string, level slog.Level) {
	slog.SetDefault(New(os.Stderr, format, level))
}

// New builds a logger for the given format ("json" or anything else for text).
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		}))
	}
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}),
	)
}
