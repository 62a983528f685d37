package main

import "keybridge/internal/config"

// getConfigSnapshot returns a copy of the config protected by cfgMu.
// All read access to App.cfg should go through this helper.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a copy of cfg protected by cfgMu.
func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
}

// swapConfigSnapshot stores cfg and reports whether it differs from the
// previous value.
func (a *App) swapConfigSnapshot(cfg config.Config) bool {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	changed := a.cfg != cfg
	a.cfg = config.Clone(cfg)
	return changed
}
