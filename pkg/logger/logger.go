// Package logger provides structured logging built on slog.
package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Logger wraps slog.Logger so the handler choice stays in one place.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the specified level and format.
// JSON output is intended for production; the text form uses a
// colorized handler for local development.
func New(level slog.Level, json bool) *Logger {
	var handler slog.Handler

	if json {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: level == slog.LevelDebug,
		})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:     level,
			AddSource: level == slog.LevelDebug,
		})
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Default creates a logger with default settings (INFO level, JSON format).
func Default() *Logger {
	return New(slog.LevelInfo, true)
}
