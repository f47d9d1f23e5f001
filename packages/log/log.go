// Package log builds the zerolog logger shared by the CLI and the
// request builder.
//
// Console output goes to stderr. When a file is configured, entries are
// also written as JSON to a size-rotated log file.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Debug   bool
	NoColor bool
	Console io.Writer // defaults to os.Stderr

	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// New returns a logger for cfg and a function that releases the log file.
func New(cfg Config) (zerolog.Logger, func() error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}}

	closeFn := func() error { return nil }
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    valueOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valueOr(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     valueOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		writers = append(writers, file)
		closeFn = file.Close
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closeFn
}

func valueOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
