package main

import (
	"context"
	"testing"
)

func TestOnWorkerPanicEmitsEvent(t *testing.T) {
	events := captureRuntimeEvents(t)
	app, _ := newTestApp(t)
	app.setRuntimeContext(context.Background())

	app.onWorkerPanic("history-writer", 2)
	got := events.byName("app:worker-panic")
	if len(got) != 1 {
		t.Fatalf("app:worker-panic count = %d, want 1", len(got))
	}
	payload := got[0].data[0].(map[string]any)
	if payload["worker"] != "history-writer" || payload["attempt"] != 2 {
		t.Fatalf("payload = %v", payload)
	}
}

func TestOnWorkerPanicSilentDuringShutdown(t *testing.T) {
	events := captureRuntimeEvents(t)
	app, _ := newTestApp(t)
	app.setRuntimeContext(context.Background())
	app.shuttingDown.Store(true)

	app.onWorkerPanic("config-watcher", 1)
	if n := events.count("app:worker-panic"); n != 0 {
		t.Fatalf("app:worker-panic emitted %d times during shutdown", n)
	}
}
