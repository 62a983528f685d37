package testutil

import (
	"bytes"
	"log/slog"
	"testing"
)

// CaptureLogBuffer routes the default slog logger into a buffer at level and
// restores the previous logger when t finishes. Tests using it must not run
// in parallel.
func CaptureLogBuffer(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}
