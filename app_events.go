package main

import (
	"context"
	"log/slog"
)

// emitAppEvent is the application event bus. It fans a payload-less event
// out to the front-end, the WebSocket stream and the activation recorder.
//
// Called from hotkey listener goroutines: it must stay lock-free apart from
// ctxMu and must not block on slow consumers.
func (a *App) emitAppEvent(name string) {
	if ctx := a.runtimeContext(); ctx != nil {
		runtimeEventsEmitFn(ctx, name)
	} else {
		slog.Debug("[EVENT] front-end delivery skipped because runtime context is nil", "event", name)
	}
	if hub := a.streamHub.Load(); hub != nil {
		hub.Broadcast(name)
	}
	if rec := a.recorder.Load(); rec != nil {
		rec.Emit(name)
	}
}

// emitRuntimeEvent emits a front-end event with a payload via the app context.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits only when ctx is non-nil.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Warn("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}
