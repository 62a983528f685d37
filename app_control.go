package main

import (
	"log/slog"

	"keybridge/internal/control"
	"keybridge/internal/history"
)

// controlHost exposes App to the control pipe without adding methods to the
// Wails-bound surface.
type controlHost struct {
	app *App
}

var _ control.Host = controlHost{}

func (h controlHost) RegisterHotkey(text string) error { return h.app.RegisterGlobalHotkey(text) }
func (h controlHost) UnregisterHotkey() error          { return h.app.UnregisterGlobalHotkey() }
func (h controlHost) CurrentHotkey() (string, bool)    { return h.app.hotkeys.Current() }
func (h controlHost) ActivateWindow()                  { h.app.bringWindowToFront() }
func (h controlHost) EventStreamURL() string           { return h.app.GetEventStreamURL() }

func (h controlHost) RecentActivations(limit int) ([]history.Activation, int, error) {
	return h.app.recentActivations(limit)
}

// startControlServer serves keybridgectl on the per-user endpoint.
func (a *App) startControlServer() error {
	server := newControlServerFn(controlEndpointFn(), control.NewExecutor(controlHost{app: a}))
	if err := server.Start(); err != nil {
		return err
	}
	a.controlServer = server
	slog.Info("[ipc] control server listening", "endpoint", server.Endpoint())
	return nil
}

func (a *App) stopControlServer() {
	if a.controlServer == nil {
		return
	}
	if err := a.controlServer.Stop(); err != nil {
		slog.Warn("[ipc] control server stop failed", "error", err)
	}
}

// bringWindowToFront shows and raises the main window. Used when a second
// instance or keybridgectl asks for activation.
func (a *App) bringWindowToFront() {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Warn("[ipc] activate-window dropped because runtime context is nil")
		return
	}
	runtimeWindowShowFn(ctx)
	runtimeWindowUnminimiseFn(ctx)
	runtimeWindowSetAlwaysOnTopFn(ctx, true)
	runtimeWindowSetAlwaysOnTopFn(ctx, false)
}
