package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"keybridge/internal/workerutil"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce coalesces the burst of events editors produce
// for a single save.
const DefaultReloadDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk and passes the
// parsed result to a callback. A file that fails to parse is skipped so a
// half-written edit never resets settings to defaults.
type Watcher struct {
	path     string
	onChange func(Config)

	fsw       *fsnotify.Watcher
	debounced func(func())

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool
	started atomic.Bool
}

// NewWatcher watches the directory containing path. The directory is
// created if missing.
func NewWatcher(path string, interval time.Duration, onChange func(Config)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("config watcher: onChange is required")
	}
	if interval <= 0 {
		interval = DefaultReloadDebounce
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config watcher: resolve path: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("config watcher: mkdir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	// Editors often save by rename, so watch the directory rather than the file.
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config watcher: watch %s: %w", dir, err)
	}
	return &Watcher{
		path:      absPath,
		onChange:  onChange,
		fsw:       fsw,
		debounced: debounce.New(interval),
	}, nil
}

// Start begins delivering reloads until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	workerutil.RunWithPanicRecovery(loopCtx, "config-watcher", &w.wg, w.loop, workerutil.RecoveryOptions{
		MaxRetries: 3,
		IsShutdown: w.closed.Load,
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("[DEBUG-CONFIG] config file event", "op", event.Op.String())
			w.debounced(w.reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if w.closed.Load() {
		return
	}
	if _, err := os.Stat(w.path); err != nil {
		// Renamed away mid-save; the following Create schedules another reload.
		slog.Debug("[DEBUG-CONFIG] config file not present, skipping reload", "error", err)
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload skipped", "path", w.path, "error", err)
		return
	}
	slog.Info("[CONFIG] config reloaded from disk", "path", w.path)
	w.onChange(cfg)
}

// Close stops the watcher and waits for the event loop to exit.
// A reload that is already running may still complete.
func (w *Watcher) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.debounced(func() {})
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
