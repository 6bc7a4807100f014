// Package logging sets up slog the way the rest of the stack expects:
// a daily-rotating file handler under <config_root>/logs plus an optional
// stderr handler, fanned out through a MultiHandler.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Level      slog.Level
	JSON       bool
	Dir        string // directory the YYYY-MM-DD.log files are written into
	AlsoStderr bool
	MaxSizeMB  int
}

func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		AlsoStderr: true,
		MaxSizeMB:  50,
	}
}

// FromEnv reads GOOSTR_JSON, GOOSTR_NO_STDERR, and a RUST_LOG-equivalent
// GOOSTR_LOG level filter ("debug", "info", "warn", "error").
func FromEnv(configDir string) Config {
	cfg := DefaultConfig()
	cfg.Dir = filepath.Join(configDir, "logs")
	cfg.JSON = os.Getenv("GOOSTR_JSON") != ""
	cfg.AlsoStderr = os.Getenv("GOOSTR_NO_STDERR") == ""

	switch strings.ToLower(os.Getenv("GOOSTR_LOG")) {
	case "debug":
		cfg.Level = slog.LevelDebug
	case "warn", "warning":
		cfg.Level = slog.LevelWarn
	case "error":
		cfg.Level = slog.LevelError
	}
	return cfg
}

// MultiHandler fans a record out to every handler that is Enabled for it.
type MultiHandler struct{ hs []slog.Handler }

func (m MultiHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return MultiHandler{hs: out}
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithGroup(name)
	}
	return MultiHandler{hs: out}
}

// New builds a logger per cfg. The returned closer should be deferred by
// the caller (it is a no-op if no file handler was opened).
func New(cfg Config) (*slog.Logger, func() error) {
	handlers := make([]slog.Handler, 0, 2)
	closer := func() error { return nil }

	if cfg.Dir != "" {
		if w, err := newDailyWriter(cfg.Dir, cfg.MaxSizeMB*1024*1024); err == nil {
			handlers = append(handlers, newHandler(w, cfg.JSON, cfg.Level))
			closer = w.Close
		}
	}

	if cfg.AlsoStderr || len(handlers) == 0 {
		handlers = append(handlers, newHandler(os.Stderr, cfg.JSON, cfg.Level))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = MultiHandler{hs: handlers}
	}

	l := slog.New(h)
	return l, closer
}

func newHandler(w io.Writer, asJSON bool, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// dailyFileName returns "YYYY-MM-DD.log" for the given time in UTC.
func dailyFileName(t time.Time) string {
	return t.UTC().Format("2006-01-02") + ".log"
}
