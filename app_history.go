package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"keybridge/internal/config"
	"keybridge/internal/history"
)

const recorderStopTimeout = 5 * time.Second

// openHistory opens the store and starts the recorder. It is a no-op when
// history is already open.
func (a *App) openHistory(maxEntries int) error {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()

	if a.historyStore.Load() != nil {
		return nil
	}
	path := filepath.Join(config.Dir(a.configPath), history.FileName)
	store, err := openHistoryStoreFn(path)
	if err != nil {
		return fmt.Errorf("open activation history: %w", err)
	}

	rec := history.NewRecorder(store, maxEntries)
	rec.OnPanic = a.onWorkerPanic
	rec.Start(a.backgroundContext())

	a.historyStore.Store(store)
	a.recorder.Store(rec)
	// Label through the manager so a concurrent Register cannot be
	// overwritten with a stale shortcut.
	a.hotkeys.Resync()
	slog.Info("[HISTORY] activation history enabled", "path", store.Path(), "maxEntries", maxEntries)
	return nil
}

// closeHistory stops the recorder, flushing queued activations, and closes
// the store.
func (a *App) closeHistory() {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()

	rec := a.recorder.Swap(nil)
	store := a.historyStore.Swap(nil)
	if rec != nil && !waitWithTimeout(rec.Stop, recorderStopTimeout) {
		slog.Warn("[WARN-HISTORY] timed out flushing activation recorder")
	}
	if store != nil {
		if err := store.Close(); err != nil {
			slog.Warn("[WARN-HISTORY] failed to close history store", "error", err)
		}
		slog.Info("[HISTORY] activation history closed", "path", store.Path())
	}
}

// applyHistoryConfig reconciles the open store with cfg.History.
func (a *App) applyHistoryConfig(cfg config.HistoryConfig) {
	if !cfg.Enabled {
		a.closeHistory()
		return
	}
	if rec := a.recorder.Load(); rec != nil {
		rec.SetMaxEntries(cfg.MaxEntries)
		return
	}
	if err := a.openHistory(cfg.MaxEntries); err != nil {
		slog.Warn("[WARN-HISTORY] history enable failed", "error", err)
	}
}
