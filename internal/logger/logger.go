package logger

import (
	"log/slog"
	"os"
	"strings"
)

// base is usable before Init so early startup code can log. Init replaces
// it with the configured handler.
var base = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Init configures the process-wide logger. Call once at startup before
// anything else logs. json selects the JSON handler.
func Init(level string, json bool) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	base = slog.New(h)
	slog.SetDefault(base)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return base.With(args...)
}

func Debug(msg string, args ...any) { base.Debug(msg, args...) }

func Info(msg string, args ...any) { base.Info(msg, args...) }

func Warn(msg string, args ...any) { base.Warn(msg, args...) }

func Error(msg string, args ...any) { base.Error(msg, args...) }

// Fatal logs the message and exits. Only for unrecoverable startup errors.
func Fatal(msg string, args ...any) {
	base.Error(msg, args...)
	os.Exit(1)
}
