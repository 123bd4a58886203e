package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Level mirrors the subset of charmbracelet/log's levels the rest of the
// module cares about.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) charm() charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Config controls the behavior of a Logger.
type Config struct {
	Level  Level
	Output io.Writer
	JSON   bool

	// Syslog, when set and Enabled, forwards every log entry to a remote
	// syslog collector in addition to Output. A dial failure is logged to
	// Output and otherwise ignored; it never prevents New from returning a
	// working Logger.
	Syslog *SyslogConfig
}

// DefaultConfig returns a Config suitable for interactive use: info level,
// text formatting, stderr output.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr, JSON: false}
}

// Logger is a structured, component-scoped wrapper around charmbracelet/log.
type Logger struct {
	l *charmlog.Logger
}

// New builds a root Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Syslog != nil && cfg.Syslog.Enabled {
		if w, err := NewSyslogWriter(*cfg.Syslog); err == nil {
			out = io.MultiWriter(out, w)
		} else {
			fmt.Fprintf(out, "logging: syslog forwarding disabled: %v\n", err)
		}
	}
	opts := charmlog.Options{
		Level:           cfg.Level.charm(),
		ReportTimestamp: true,
	}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	return &Logger{l: charmlog.NewWithOptions(out, opts)}
}

// WithComponent returns a child logger tagged with the given component
// name, attached as a "component" field on every subsequent entry.
func (lg *Logger) WithComponent(name string) *Logger {
	return &Logger{l: lg.l.With("component", name)}
}

// WithError attaches an "error" field to the returned child logger.
func (lg *Logger) WithError(err error) *Logger {
	if err == nil {
		return lg
	}
	return &Logger{l: lg.l.With("error", err.Error())}
}

// WithFields attaches an arbitrary set of key/value fields to the returned
// child logger.
func (lg *Logger) WithFields(fields map[string]any) *Logger {
	kv := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &Logger{l: lg.l.With(kv...)}
}

func (lg *Logger) Debug(msg string, kv ...any) { lg.l.Debug(msg, kv...) }
func (lg *Logger) Info(msg string, kv ...any)   { lg.l.Info(msg, kv...) }
func (lg *Logger) Warn(msg string, kv ...any)   { lg.l.Warn(msg, kv...) }
func (lg *Logger) Error(msg string, kv ...any)  { lg.l.Error(msg, kv...) }

var (
	defaultMu  sync.RWMutex
	defaultLog = New(DefaultConfig())
)

// SetDefault replaces the package-level default logger used by the
// package-level WithComponent helper.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLog = l
}

// WithComponent returns a component-scoped child of the current default
// logger, for callers that have not constructed their own root Logger.
func WithComponent(name string) *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLog.WithComponent(name)
}
