package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"keybridge/internal/config"
	"keybridge/internal/hotkeys"
)

// NOTE: Tests in this package swap package-level function variables
// (runtimeEventsEmitFn, newShortcutServiceFn, ...). Do not use t.Parallel().

type emittedEvent struct {
	name string
	data []any
}

type runtimeEventRecorder struct {
	mu     sync.Mutex
	events []emittedEvent
}

// captureRuntimeEvents replaces runtimeEventsEmitFn for the test.
func captureRuntimeEvents(t *testing.T) *runtimeEventRecorder {
	t.Helper()
	rec := &runtimeEventRecorder{}
	orig := runtimeEventsEmitFn
	runtimeEventsEmitFn = func(_ context.Context, name string, data ...any) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, emittedEvent{name: name, data: data})
	}
	t.Cleanup(func() { runtimeEventsEmitFn = orig })
	return rec
}

func (r *runtimeEventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

func (r *runtimeEventRecorder) byName(name string) []emittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emittedEvent
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *runtimeEventRecorder) count(name string) int {
	return len(r.byName(name))
}

// newTestApp builds an App over an in-memory shortcut subsystem.
func newTestApp(t *testing.T) (*App, *hotkeys.FakeShortcuts) {
	t.Helper()
	fake := hotkeys.NewFakeShortcuts()
	orig := newShortcutServiceFn
	newShortcutServiceFn = func() hotkeys.ShortcutService { return fake }
	t.Cleanup(func() { newShortcutServiceFn = orig })
	return NewApp(nil), fake
}

// useTempConfigDir points config.DefaultPath into a temp directory and
// returns the resulting config path.
func useTempConfigDir(t *testing.T) string {
	t.Helper()
	t.Setenv("LOCALAPPDATA", t.TempDir())
	return config.DefaultPath()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
