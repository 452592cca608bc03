// Package logging configures the structured logger shared across every
// component of the store engine, the way the teacher CLI wires up
// log/slog at startup — but as a reusable constructor instead of a
// package-level initLogging() so library callers (not just
// cmd/pahkatctl) get the same behavior.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the logger's level, format, and destination.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty means "warn",
	// matching the CLI's quiet-by-default posture.
	Level string

	// Format is "text" (default) or "json".
	Format string

	// Filename, when non-empty, routes output through a rotating file
	// writer instead of stderr.
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *slog.Logger from cfg. It never returns nil.
func New(cfg Config) *slog.Logger {
	handler := slog.NewTextHandler(writer(cfg), &slog.HandlerOptions{Level: level(cfg.Level)})
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(writer(cfg), &slog.HandlerOptions{Level: level(cfg.Level)})
	}
	return slog.New(handler)
}

func level(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	case "warn", "":
		return slog.LevelWarn
	default:
		return slog.LevelWarn
	}
}

func writer(cfg Config) io.Writer {
	if cfg.Filename == "" {
		return os.Stderr
	}
	maxSize := cfg.MaxSizeMB
	if maxSize == 0 {
		maxSize = 10
	}
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}
