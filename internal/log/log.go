// Package log builds the slog loggers the service injects everywhere.
//
// Loggers are passed in through constructors, never pulled from globals;
// Named tags a child logger with the component it belongs to.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so components depend on the standard type
// and keep full access to With, WithGroup, and the slog ecosystem.
type Logger = *slog.Logger

// Config controls handler construction.
type Config struct {
	Level     slog.Level // minimum level, defaults to Info
	JSON      bool       // JSON handler instead of text
	AddSource bool       // annotate records with file:line
}

// New returns a logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter returns a logger writing to w. Tests pass a buffer here
// to inspect output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Named returns a child of logger tagged with the component name, so
// every record from one subsystem carries the same component attribute.
func Named(logger Logger, component string) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}

// NewNop returns a logger that discards everything. Test-only: production
// code always wants a real handler.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
