package logmask

import (
	"context"
	"log/slog"
)

// Handler masks the message and attributes of every record before passing it on.
type Handler struct {
	inner slog.Handler
}

// NewHandler wraps inner so that nothing reaches it unmasked.
func NewHandler(inner slog.Handler) *Handler {
	if h, ok := inner.(*Handler); ok {
		return h
	}
	return &Handler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, Mask(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(maskAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, masked)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, maskAttr(attr))
	}
	return &Handler{inner: h.inner.WithAttrs(out)}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}

func maskAttr(attr slog.Attr) slog.Attr {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		group := value.Group()
		out := make([]any, 0, len(group))
		for _, a := range group {
			out = append(out, maskAttr(a))
		}
		return slog.Group(attr.Key, out...)
	}
	if IsSensitiveKey(attr.Key) {
		return slog.String(attr.Key, Placeholder)
	}
	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, Mask(value.String()))
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, Mask(err.Error()))
		}
		return slog.String(attr.Key, Mask(value.String()))
	default:
		return slog.Attr{Key: attr.Key, Value: value}
	}
}
