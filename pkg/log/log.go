// Package log configures the process-wide structured logger shared by the
// mailbridge binaries.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default slog logger. Output is JSON on stderr so the
// log collector ingests fields without a parse step. Unknown levels fall
// back to info.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with a component name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
