// Package logging provides structured logging with file rotation and secret masking.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/usestring/authwatch-mcp/internal/redact"
)

// Config holds logging configuration.
type Config struct {
	Level      string   // Log level: debug, info, warn, error
	FilePath   string   // Path to log file (empty = stderr only)
	MaxSizeMB  int      // Max size in MB before rotation
	MaxBackups int      // Max number of old log files to retain
	MaxAgeDays int      // Max age in days to retain old log files
	Compress   bool     // Whether to compress rotated files
	Redact     []string // Literal secrets masked in every string attribute
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	}
}

// Setup initializes the global slog logger with the given configuration.
// Returns a cleanup function that should be called on shutdown.
func Setup(cfg Config) (func() error, error) {
	var writer io.Writer
	var cleanup func() error

	if cfg.FilePath != "" {
		// Ensure directory exists
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}

		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		writer = lj
		cleanup = lj.Close
	} else {
		writer = os.Stderr
		cleanup = func() error { return nil }
	}

	slog.SetDefault(slog.New(NewHandler(writer, cfg)))

	return cleanup, nil
}

// NewHandler builds the text handler used by Setup. Attributes whose key names
// a secret are replaced by the mask; other string values have configured
// secrets and bearer tokens masked.
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	masker := redact.New(cfg.Redact...)
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: maskAttr(masker),
	})
}

func maskAttr(m *redact.Masker) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
			return a
		}
		if a.Value.Kind() != slog.KindString {
			return a
		}
		if redact.IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redact.Mask)
		}
		return slog.String(a.Key, m.String(a.Value.String()))
	}
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
