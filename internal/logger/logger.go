package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"catalograg/config"
)

// New builds a structured logger from configuration. verbose forces debug level.
// Logs go to stderr so command output on stdout stays machine readable.
func New(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg, verbose)
}

func NewWithWriter(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := ParseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
