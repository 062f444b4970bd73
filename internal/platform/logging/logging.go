// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
)

// Standard attribute keys shared by middleware and services.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldTripID    = "trip_id"
	FieldExpenseID = "expense_id"
	FieldUserID    = "user_id"
	FieldError     = "error"
)

// New returns a logger writing to w. format is "json" or "text"; level is one of
// debug, info, warn, error and falls back to info when unparseable.
func New(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// Component scopes l to a named component.
func Component(l *slog.Logger, name string) *slog.Logger {
	return l.With(FieldComponent, name)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
