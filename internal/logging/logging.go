// Package logging provides the structured logger shared by all components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logging interface components depend on.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

// Level is a log level name.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

func (l Level) charm() charmlog.Level {
	switch Level(strings.ToLower(string(l))) {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Config configures New.
type Config struct {
	Level      Level
	Output     io.Writer
	JSON       bool
	TimeFormat string
	// File, when set, receives log lines instead of Output.
	File string
}

// DefaultConfig logs info and above to stderr.
func DefaultConfig() Config {
	return Config{Level: InfoLevel, Output: os.Stderr, TimeFormat: "15:04:05"}
}

type charmLogger struct {
	l *charmlog.Logger
	// level is shared with every logger derived through With.
	level *atomic.Int32
}

// New builds a Logger. The returned closer releases the log file, if any.
func New(cfg Config) (Logger, io.Closer, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "15:04:05"
	}

	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           charmlog.DebugLevel,
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.SetStyles(styles())
	}
	level := &atomic.Int32{}
	level.Store(int32(cfg.Level.charm()))
	return &charmLogger{l: l, level: level}, closer, nil
}

func styles() *charmlog.Styles {
	s := charmlog.DefaultStyles()
	s.Levels[charmlog.DebugLevel] = lipgloss.NewStyle().SetString("DEBU").Foreground(lipgloss.Color("63"))
	s.Levels[charmlog.InfoLevel] = lipgloss.NewStyle().SetString("INFO").Foreground(lipgloss.Color("86")).Bold(true)
	s.Levels[charmlog.WarnLevel] = lipgloss.NewStyle().SetString("WARN").Foreground(lipgloss.Color("192")).Bold(true)
	s.Levels[charmlog.ErrorLevel] = lipgloss.NewStyle().SetString("ERRO").Foreground(lipgloss.Color("204")).Bold(true)
	s.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	s.Values["error"] = lipgloss.NewStyle().Bold(true)
	return s
}

func (c *charmLogger) enabled(l charmlog.Level) bool {
	return l >= charmlog.Level(c.level.Load())
}

func (c *charmLogger) Debug(msg string, keyvals ...any) {
	if c.enabled(charmlog.DebugLevel) {
		c.l.Debug(msg, keyvals...)
	}
}

func (c *charmLogger) Info(msg string, keyvals ...any) {
	if c.enabled(charmlog.InfoLevel) {
		c.l.Info(msg, keyvals...)
	}
}

func (c *charmLogger) Warn(msg string, keyvals ...any) {
	if c.enabled(charmlog.WarnLevel) {
		c.l.Warn(msg, keyvals...)
	}
}

func (c *charmLogger) Error(msg string, keyvals ...any) {
	if c.enabled(charmlog.ErrorLevel) {
		c.l.Error(msg, keyvals...)
	}
}

func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(keyvals...), level: c.level}
}

// SetLevel changes the level of l and every logger derived from it. It
// reports false for loggers that do not support it.
func SetLevel(l Logger, level Level) bool {
	c, ok := l.(*charmLogger)
	if !ok {
		return false
	}
	c.level.Store(int32(level.charm()))
	return true
}

type nopLogger struct{}

// Nop returns a logger that discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (n nopLogger) With(...any) Logger { return n }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
