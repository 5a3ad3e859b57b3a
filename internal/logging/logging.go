// Package logging configures structured logging for the engine. By default
// logs go to stderr as JSON; Setup additionally writes a size-rotated file
// when Config.FilePath is set, whatever the log level.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config controls where and how verbosely the engine logs.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// FilePath is the rotated log file path. Empty disables file logging.
	FilePath string
	// MaxSizeMB is the size before rotation (default 10).
	MaxSizeMB int
	// MaxFiles is the number of rotated files retained (default 5).
	MaxFiles int
	// WriteToStderr additionally mirrors logs to stderr (default true).
	WriteToStderr bool
}

// DefaultConfig returns info-level, stderr-only logging.
func DefaultConfig() Config {
	return Config{Level: "info", WriteToStderr: true}
}

// Setup builds a slog.Logger per cfg and returns it with a cleanup func.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var output io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.FilePath != "" {
		w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		if cfg.WriteToStderr {
			output = io.MultiWriter(w, os.Stderr)
		} else {
			output = w
		}
		cleanup = func() { _ = w.Close() }
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: LevelFromString(cfg.Level)})
	return slog.New(handler), cleanup, nil
}

// LevelFromString converts a config string level to slog.Level; also used
// by the log viewer to compare entry levels against a filter.
func LevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
