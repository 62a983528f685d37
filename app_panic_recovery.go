package main

import "log/slog"

// onWorkerPanic reports a recovered background panic to the front-end.
func (a *App) onWorkerPanic(worker string, attempt int) {
	if a.shuttingDown.Load() {
		return
	}
	slog.Warn("[DEBUG-PANIC] worker restarting after panic", "worker", worker, "attempt", attempt)
	a.emitRuntimeEvent("app:worker-panic", map[string]any{
		"worker":  worker,
		"attempt": attempt,
	})
}
