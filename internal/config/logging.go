package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level      string            `mapstructure:"level"       yaml:"level"       validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	JSON       bool              `mapstructure:"json"        yaml:"json"`
	File       string            `mapstructure:"file"        yaml:"file"`
	NoTerminal bool              `mapstructure:"no_terminal" yaml:"no_terminal"`
	Rotation   LogRotationConfig `mapstructure:"rotation"    yaml:"rotation"`
}

type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"    yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"     yaml:"max_age"`
	Compress   bool `mapstructure:"compress"    yaml:"compress"`
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// NewLogger builds the process logger. Output goes to stdout unless
// NoTerminal is set, and additionally to a size-rotated file when File is set.
// The returned closer releases the log file and must be closed on shutdown.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if !cfg.NoTerminal {
		writers = append(writers, os.Stdout)
	}

	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.Rotation.MaxSize,
			MaxBackups: cfg.Rotation.MaxBackups,
			MaxAge:     cfg.Rotation.MaxAge,
			Compress:   cfg.Rotation.Compress,
		}
		writers = append(writers, fileWriter)
		closer = fileWriter
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	out := io.MultiWriter(writers...)

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
