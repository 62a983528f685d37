package main

import (
	"log/slog"
	"path/filepath"

	"keybridge/internal/config"
	"keybridge/internal/sessionlog"
)

// newLogHandler wraps base so Warn and Error records reach the diagnostics log.
func (a *App) newLogHandler(base slog.Handler) slog.Handler {
	return sessionlog.NewTeeHandler(base, slog.LevelWarn, a.recordDiagnostic)
}

// recordDiagnostic runs inside the slog handler chain. It must not log
// through slog, so front-end delivery bypasses emitRuntimeEvent.
func (a *App) recordDiagnostic(entry sessionlog.Entry) {
	l := a.diagLog.Load()
	if l == nil {
		return
	}
	if !l.Append(entry) {
		return
	}
	// Ping only; the front-end fetches GetDiagnosticsLog on receipt, so a
	// throttled ping loses nothing.
	if ctx := a.runtimeContext(); ctx != nil {
		runtimeEventsEmitFn(ctx, "app:diagnostics-updated")
	}
}

// initDiagnosticsLog opens this run's JSONL file next to the config file.
// Failures are non-fatal: entries are still buffered in memory.
func (a *App) initDiagnosticsLog() {
	dir := filepath.Join(config.Dir(a.configPath), sessionlog.DirName)
	l, err := sessionlog.Open(dir, sessionlog.Options{})
	a.diagLog.Store(l)
	if err != nil {
		slog.Warn("[session-log] diagnostics file unavailable, keeping entries in memory only", "dir", dir, "error", err)
		return
	}
	slog.Info("[session-log] initialized", "path", l.Path())
}

func (a *App) closeDiagnosticsLog() {
	l := a.diagLog.Load()
	if l == nil {
		return
	}
	if err := l.Close(); err != nil {
		slog.Warn("[session-log] failed to close diagnostics file", "error", err)
	}
}

// GetDiagnosticsLog returns buffered warning and error entries, oldest first.
func (a *App) GetDiagnosticsLog() []sessionlog.Entry {
	l := a.diagLog.Load()
	if l == nil {
		return []sessionlog.Entry{}
	}
	return l.Snapshot()
}

// GetDiagnosticsLogFilePath returns the current run's JSONL file, or "".
func (a *App) GetDiagnosticsLogFilePath() string {
	l := a.diagLog.Load()
	if l == nil {
		return ""
	}
	return l.Path()
}
