package progress

import (
	"context"
	"log/slog"
)

// SlogHandler wraps another slog handler so log records and the live
// progress region share a terminal: the display is paused, the record
// written under the terminal lock, then rendering resumes below the log
// line.
type SlogHandler struct {
	inner slog.Handler
	disp  *Display
}

// NewSlogHandler wraps inner against the default display.
func NewSlogHandler(inner slog.Handler) *SlogHandler {
	return NewSlogHandlerFor(Default(), inner)
}

// NewSlogHandlerFor wraps inner against a specific display.
func NewSlogHandlerFor(d *Display, inner slog.Handler) *SlogHandler {
	return &SlogHandler{inner: inner, disp: d}
}

func (h *SlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *SlogHandler) Handle(ctx context.Context, rec slog.Record) error {
	h.disp.Pause()
	defer h.disp.Resume()
	var err error
	h.disp.WithTerminalLock(func() {
		err = h.inner.Handle(ctx, rec)
	})
	return err
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SlogHandler{inner: h.inner.WithAttrs(attrs), disp: h.disp}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	return &SlogHandler{inner: h.inner.WithGroup(name), disp: h.disp}
}
