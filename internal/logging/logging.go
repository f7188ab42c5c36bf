// Package logging holds the silent-by-default logger shared by the
// compositor packages.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

// Holder stores a logger that can be swapped while other goroutines log.
// The zero value logs nothing.
type Holder struct {
	ptr atomic.Pointer[slog.Logger]
}

// Set stores l. A nil logger restores the silent default.
func (h *Holder) Set(l *slog.Logger) {
	if l == nil {
		l = Nop()
	}
	h.ptr.Store(l)
}

// Get returns the current logger, never nil.
func (h *Holder) Get() *slog.Logger {
	if l := h.ptr.Load(); l != nil {
		return l
	}
	return nopLogger
}

var nopLogger = Nop()
