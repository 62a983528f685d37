package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"keybridge/internal/config"
	"keybridge/internal/eventstream"
	"keybridge/internal/history"
	"keybridge/internal/hotkeys/oshotkeys"
	"keybridge/internal/ipc"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...any)
	Infof(context.Context, string, ...any)
	Errorf(context.Context, string, ...any)
}

type wailsRuntimeLogger struct{}

func formatRuntimeLogMessage(message string, args ...any) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Warn(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Info(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...any) {
	if ctx == nil {
		slog.Error(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

var (
	runtimeEventsEmitFn                            = runtime.EventsEmit
	runtimeLogger                 appRuntimeLogger = wailsRuntimeLogger{}
	runtimeWindowShowFn                            = runtime.WindowShow
	runtimeWindowUnminimiseFn                      = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn                  = runtime.WindowSetAlwaysOnTop

	newShortcutServiceFn = oshotkeys.New
	configPathFn         = config.DefaultPath
	openHistoryStoreFn   = history.Open
	newControlServerFn   = ipc.NewServer
	controlEndpointFn    = ipc.DefaultEndpoint
)

const shutdownWaitTimeout = 10 * time.Second

func (a *App) startup(ctx context.Context) {
	setConsoleUTF8()

	a.setRuntimeContext(ctx)
	bgCtx := a.startBackground(ctx)

	a.configPath = configPathFn()
	for _, message := range config.ConsumeDefaultPathWarnings() {
		a.addPendingConfigLoadWarning(message)
	}
	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		// Non-fatal: continue with defaults and surface a warning.
		cfg = config.DefaultConfig()
		a.addPendingConfigLoadWarning(
			"Failed to load config file at startup. Running with defaults. Error: " + err.Error(),
		)
		runtimeLogger.Warningf(ctx, "failed to load config from %s: %v", a.configPath, err)
	}
	a.setConfigSnapshot(cfg)
	a.logLevel.Set(cfg.SlogLevel())

	a.initDiagnosticsLog()

	if cfg.History.Enabled {
		if err := a.openHistory(cfg.History.MaxEntries); err != nil {
			runtimeLogger.Warningf(ctx, "activation history unavailable: %v", err)
			a.addPendingConfigLoadWarning("Activation history is unavailable. Error: " + err.Error())
		}
	}

	if cfg.EventStream.Enabled {
		if err := a.startEventStream(bgCtx, cfg.EventStream.Port); err != nil {
			runtimeLogger.Errorf(ctx, "event stream failed: %v", err)
			a.addPendingConfigLoadWarning(
				"Failed to start the event stream. External listeners will not receive hotkey events. Error: " + err.Error(),
			)
		} else {
			runtimeLogger.Infof(ctx, "event stream listening: %s", a.GetEventStreamURL())
		}
	}

	if cfg.ControlPipe.Enabled {
		if err := a.startControlServer(); err != nil {
			runtimeLogger.Errorf(ctx, "control server failed: %v", err)
			a.addPendingConfigLoadWarning(
				"Failed to start the control pipe. keybridgectl will be unavailable. Error: " + err.Error(),
			)
		}
	}

	a.startConfigWatcher(bgCtx)
	a.flushPendingConfigLoadWarnings()
}

func (a *App) startEventStream(ctx context.Context, port int) error {
	hub := eventstream.NewHub(eventstream.HubOptions{
		Addr: net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
	})
	if err := hub.Start(ctx); err != nil {
		return err
	}
	a.streamHub.Store(hub)
	return nil
}

func (a *App) startConfigWatcher(ctx context.Context) {
	w, err := config.NewWatcher(a.configPath, config.DefaultReloadDebounce, a.onConfigFileChanged)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config hot reload disabled", "error", err)
		return
	}
	w.Start(ctx)
	a.cfgWatcher = w
}

func (a *App) shutdown(_ context.Context) {
	logCtx := a.runtimeContext()
	a.shuttingDown.Store(true)

	// The shortcut is not persisted; release it so the OS forgets it too.
	if err := a.hotkeys.Unregister(); err != nil {
		runtimeLogger.Warningf(logCtx, "global hotkey release failed: %v", err)
	}

	if a.cfgWatcher != nil {
		if err := a.cfgWatcher.Close(); err != nil {
			runtimeLogger.Warningf(logCtx, "config watcher stop failed: %v", err)
		}
	}
	a.stopControlServer()
	if hub := a.streamHub.Swap(nil); hub != nil {
		if !waitWithTimeout(func() {
			if err := hub.Stop(); err != nil {
				slog.Warn("[DEBUG-WS] event stream stop failed", "error", err)
			}
		}, shutdownWaitTimeout) {
			runtimeLogger.Warningf(logCtx, "timed out stopping event stream")
		}
	}

	a.stopBackground()
	a.closeHistory()
	a.closeDiagnosticsLog()
}

// waitWithTimeout runs waitFn and reports whether it returned within
// timeout. The waiting goroutine may outlive timeout; it is only used on
// shutdown paths where eventual completion is expected.
func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
