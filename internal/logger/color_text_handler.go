package logger

import (
	"context"
	"io"
	"log/slog"
)

const ansiReset = "\033[0m"

// Palette maps log levels to ANSI escape sequences.
type Palette struct {
	Debug string
	Info  string
	Warn  string
	Error string
}

// DefaultPalette is the terminal color scheme used by the shell logger.
func DefaultPalette() Palette {
	return Palette{
		Debug: "\033[36m", // cyan
		Info:  "\033[32m", // green
		Warn:  "\033[33m", // yellow
		Error: "\033[31m", // red
	}
}

func (p Palette) color(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return p.Debug
	case l < slog.LevelWarn:
		return p.Info
	case l < slog.LevelError:
		return p.Warn
	default:
		return p.Error
	}
}

// ColorTextHandler decorates slog.TextHandler output with a colored level
// prefix for terminals. With showTime false the time attribute is dropped,
// which keeps interactive output short.
type ColorTextHandler struct {
	inner   slog.Handler
	palette Palette
}

// NewColorTextHandler builds a handler writing colored text records to w.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	var o slog.HandlerOptions
	if opts != nil {
		o = *opts
	}
	if !showTime {
		wrapped := o.ReplaceAttr
		o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			if wrapped != nil {
				return wrapped(groups, a)
			}
			return a
		}
	}
	return &ColorTextHandler{
		inner:   slog.NewTextHandler(w, &o),
		palette: DefaultPalette(),
	}
}

// WithPalette returns a copy of the handler using the given colors.
func (h *ColorTextHandler) WithPalette(p Palette) *ColorTextHandler {
	return &ColorTextHandler{inner: h.inner, palette: p}
}

func (h *ColorTextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Message = h.palette.color(r.Level) + r.Level.String() + ansiReset + "  " + r.Message
	return h.inner.Handle(ctx, r)
}

func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorTextHandler{inner: h.inner.WithAttrs(attrs), palette: h.palette}
}

func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	return &ColorTextHandler{inner: h.inner.WithGroup(name), palette: h.palette}
}
