package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"keybridge/internal/config"
	"keybridge/internal/eventstream"
	"keybridge/internal/history"
	"keybridge/internal/hotkeys"
	"keybridge/internal/ipc"
	"keybridge/internal/sessionlog"
)

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle. bgCtx parents every background worker and
	// is cancelled at shutdown.
	ctx      context.Context
	bgCtx    context.Context
	bgCancel context.CancelFunc
	ctxMu    sync.RWMutex

	// Configuration state and startup warnings.
	// Lock ordering (outer -> inner):
	//   cfgSaveMu -> cfgMu
	//   cfgApplyMu -> historyMu
	//
	// Independent locks: ctxMu, startupWarnMu, hotkeys.Manager.mu.
	// Hotkey handlers run on listener goroutines and must not take
	// hotkeys.Manager.mu or historyMu; they only read the atomics below.
	cfgMu              sync.RWMutex
	cfgSaveMu          sync.Mutex
	cfgApplyMu         sync.Mutex
	cfgAppliedVersion  uint64
	configEventVersion atomic.Uint64
	cfg                config.Config
	configPath         string
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// logLevel gates the base slog handler; config reloads update it.
	logLevel *slog.LevelVar

	// Hotkey binding.
	shortcuts hotkeys.ShortcutService
	hotkeys   *hotkeys.Manager

	// Event fan-out targets. Each is nil while its feature is off.
	streamHub atomic.Pointer[eventstream.Hub]
	recorder  atomic.Pointer[history.Recorder]

	// historyMu guards opening and closing the store; readers use the
	// atomic pointer.
	historyMu    sync.Mutex
	historyStore atomic.Pointer[history.Store]

	diagLog atomic.Pointer[sessionlog.Log]

	controlServer *ipc.Server
	cfgWatcher    *config.Watcher

	shuttingDown atomic.Bool
}

// NewApp creates the app service. logLevel may be nil.
func NewApp(logLevel *slog.LevelVar) *App {
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}
	a := &App{
		logLevel:  logLevel,
		shortcuts: newShortcutServiceFn(),
		cfg:       config.DefaultConfig(),
	}
	a.hotkeys = hotkeys.NewManager(a.shortcuts, hotkeys.EventEmitterFunc(a.emitAppEvent),
		hotkeys.ManagerOptions{OnChange: a.labelActivations})
	return a
}

// labelActivations runs under the hotkey manager's lock, so it only reads
// the recorder atomic.
func (a *App) labelActivations(text string) {
	if rec := a.recorder.Load(); rec != nil {
		rec.SetShortcut(text)
	}
}

// GetEventStreamURL returns the WebSocket URL external listeners connect to,
// or an empty string while the stream is disabled.
func (a *App) GetEventStreamURL() string {
	hub := a.streamHub.Load()
	if hub == nil {
		slog.Debug("[DEBUG-WS] event stream unavailable")
		return ""
	}
	return hub.URL()
}
