// Package logging builds the slog logger used by the authguard binaries: a
// text console handler plus two rotating JSON files, one of which receives
// errors only.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	appLogName   = "appLogs.log"
	errorLogName = "errorLogs.log"
)

// Config selects where logs go. A zero Config logs Info and above to
// stdout and to ./logs.
type Config struct {
	Dir     string
	Level   slog.Level
	Console io.Writer
	// NoFiles disables both rotating files.
	NoFiles bool
}

// New returns the logger and a closer for its files.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: cfg.Level}),
	}
	var closers multiCloser

	if !cfg.NoFiles {
		dir := cfg.Dir
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}

		app := &lumberjack.Logger{
			Filename:   filepath.Join(dir, appLogName),
			MaxSize:    1,
			MaxBackups: 10,
		}
		// lumberjack sizes in whole megabytes; the error file gets fewer backups instead.
		errs := &lumberjack.Logger{
			Filename:   filepath.Join(dir, errorLogName),
			MaxSize:    1,
			MaxBackups: 5,
		}
		closers = append(closers, app, errs)

		handlers = append(handlers,
			slog.NewJSONHandler(app, &slog.HandlerOptions{Level: cfg.Level, AddSource: true}),
			slog.NewJSONHandler(errs, &slog.HandlerOptions{Level: slog.LevelError, AddSource: true}),
		)
	}

	return slog.New(fanout(handlers)), closers, nil
}

// ParseLevel accepts debug, info, warn and error. Anything else is Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
