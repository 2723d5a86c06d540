package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// secretRegistry holds the set of sensitive values that must never appear in
// log output. Values are registered by the secret broker at fetch time.
var secretRegistry = struct {
	mu     sync.RWMutex
	values []string
}{}

// RegisterSecret records a sensitive value so every handler built by NewLogger
// masks it. Empty values are ignored.
func RegisterSecret(value string) {
	if value == "" {
		return
	}
	secretRegistry.mu.Lock()
	defer secretRegistry.mu.Unlock()
	secretRegistry.values = append(secretRegistry.values, value)
}

// redact replaces every registered secret value occurring in s with a mask.
func redact(s string) string {
	secretRegistry.mu.RLock()
	defer secretRegistry.mu.RUnlock()
	for _, v := range secretRegistry.values {
		if strings.Contains(s, v) {
			s = strings.ReplaceAll(s, v, "****")
		}
	}
	return s
}

// RedactingHandler is a slog.Handler wrapper that masks registered secret
// values in attribute values and messages before delegating.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps the given handler with secret masking.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

// Enabled reports whether the wrapped handler handles records at the given level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle masks secret values in the record and forwards it to the wrapped handler.
func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	clean := slog.NewRecord(rec.Time, rec.Level, redact(rec.Message), rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(redactAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs returns a new RedactingHandler whose wrapped handler carries the given attributes.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		masked = append(masked, redactAttr(attr))
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(masked)}
}

// WithGroup returns a new RedactingHandler with the given group opened on the wrapped handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

// redactAttr masks string-valued attributes. Non-string values pass through
// untouched since secrets only enter the program as strings.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindString {
		return slog.String(attr.Key, redact(attr.Value.String()))
	}
	return attr
}
