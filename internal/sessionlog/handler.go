// Package sessionlog captures warning and error log records for the
// diagnostics panel and persists them as JSON lines.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

// EntryCallback receives each record at or above the capture threshold.
// Entry.Seq is left zero; Log.Append assigns it.
type EntryCallback func(Entry)

// TeeHandler wraps a base [slog.Handler] and tees records at or above minLevel
// to a callback. Every record still goes to the base handler; minLevel only
// gates the callback.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Leveler
	group    string      // dot-separated slog group, reported as Entry.Source
	attrs    []slog.Attr // attrs added through WithAttrs, already group-qualified
}

// NewTeeHandler creates a TeeHandler. A nil callback makes it a pass-through.
func NewTeeHandler(base slog.Handler, minLevel slog.Leveler, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled defers to the base handler; the callback threshold does not widen
// or narrow what gets logged.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler, then invokes the callback
// when the level qualifies. The callback runs even if the base handler fails.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.callback != nil && record.Level >= h.minLevel.Level() {
		entry := Entry{
			Timestamp: record.Time,
			Level:     levelName(record.Level),
			Message:   record.Message,
			Source:    h.group,
			Attrs:     h.collectAttrs(record),
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					// stderr, not slog: logging here would re-enter this handler.
					fmt.Fprintf(os.Stderr, "[session-log] callback panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.callback(entry)
		}()
	}

	// slog.Logger reports a non-nil error on stderr as "slog: <error>".
	return err
}

// WithAttrs returns a handler whose base and captured attrs include attrs.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	next.base = h.base.WithAttrs(attrs)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: qualify(h.group, a.Key), Value: a.Value})
	}
	return next
}

// WithGroup returns a handler nested under name. An empty name returns h.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.base = h.base.WithGroup(name)
	next.group = qualify(h.group, name)
	return next
}

func (h *TeeHandler) clone() *TeeHandler {
	return &TeeHandler{
		base:     h.base,
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    append([]slog.Attr(nil), h.attrs...),
	}
}

func (h *TeeHandler) collectAttrs(record slog.Record) map[string]string {
	if len(h.attrs) == 0 && record.NumAttrs() == 0 {
		return nil
	}
	out := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		flattenAttr(out, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		flattenAttr(out, h.group, a)
		return true
	})
	return out
}

func flattenAttr(out map[string]string, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := qualify(prefix, a.Key)
		for _, sub := range v.Group() {
			flattenAttr(out, p, sub)
		}
		return
	}
	if a.Key == "" {
		return
	}
	out[qualify(prefix, a.Key)] = v.String()
}

func qualify(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// ParseLevelName maps a stored level name back to slog.Level.
func ParseLevelName(name string) slog.Level {
	switch strings.ToLower(name) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
