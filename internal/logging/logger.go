// Package logging provides the process-wide structured logger for tinycol.
//
// The package wraps log/slog. Init configures the global logger once from a
// Config; Logger returns it, creating a quiet default (WARN to stderr) on
// first use if Init was never called. Components receive a *slog.Logger so
// embedders can also inject their own.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects level, format and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output string // stderr, stdout or a file path
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	// Files opened by Init; only Close releases them.
	closers []io.Closer
)

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// New builds a logger from cfg without touching the global one. The
// returned closer is non-nil when a file was opened.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer
	var c io.Closer
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, c = f, f
	}
	return NewWithWriter(w, cfg.Format, level), c, nil
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init replaces the global logger. Loggers handed out earlier keep their
// destination; files stay open until Close.
func Init(cfg Config) error {
	l, c, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if c != nil {
		closers = append(closers, c)
	}
	current = l
	return nil
}

// Logger returns the global logger.
func Logger() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = NewWithWriter(os.Stderr, "text", slog.LevelWarn)
	}
	return current
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Close releases every log file opened by Init and resets the global logger
// when one was in use.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if len(closers) == 0 {
		return nil
	}
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	closers = nil
	current = nil
	return errors.Join(errs...)
}
