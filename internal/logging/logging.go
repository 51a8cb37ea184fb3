// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides structured, leveled logging for uplinkd.
// It wraps zerolog behind a small message+key/value API so call sites
// never depend on the backend directly.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level controls which messages are emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a config string into a Level. Unknown values
// default to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	Level  Level
	Format string // "json" or "console"
	Output io.Writer
}

// DefaultConfig returns the configuration used when none is supplied:
// info-level console output on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: "console",
		Output: os.Stderr,
	}
}

// Logger is a leveled, structured logger. Methods accept a message
// followed by alternating key/value pairs.
type Logger struct {
	zl zerolog.Logger
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a Logger from the given config.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	zl := zerolog.New(out).Level(zerologLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(DefaultConfig())
)

// Default returns the process-wide logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger. Called once at startup
// after the effective configuration is known.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// WithComponent returns a child of the default logger tagged with a
// component name.
func WithComponent(name string) *Logger {
	return Default().Component(name)
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

func fields(ev *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...any) {
	fields(l.zl.Debug(), kv).Msg(msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...any) {
	fields(l.zl.Info(), kv).Msg(msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...any) {
	fields(l.zl.Warn(), kv).Msg(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...any) {
	fields(l.zl.Error(), kv).Msg(msg)
}

// Package-level helpers log through the default logger.

func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }
