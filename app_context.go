package main

import "context"

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	ctx := a.ctx
	a.ctxMu.RUnlock()
	return ctx
}

// startBackground derives the worker context from parent. Calling it again
// replaces the previous context without cancelling it.
func (a *App) startBackground(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	a.ctxMu.Lock()
	a.bgCtx = ctx
	a.bgCancel = cancel
	a.ctxMu.Unlock()
	return ctx
}

// backgroundContext returns the worker context, or a cancelled context
// after shutdown began or before startup.
func (a *App) backgroundContext() context.Context {
	a.ctxMu.RLock()
	ctx := a.bgCtx
	a.ctxMu.RUnlock()
	if ctx == nil {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		return cancelled
	}
	return ctx
}

func (a *App) stopBackground() {
	a.ctxMu.Lock()
	cancel := a.bgCancel
	a.bgCancel = nil
	a.ctxMu.Unlock()
	if cancel != nil {
		cancel()
	}
}
