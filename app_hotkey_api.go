package main

import "log/slog"

// RegisterGlobalHotkey binds shortcut as the single global hotkey, replacing
// any previous one. Failures are *hotkeys.Error values whose message starts
// with a fixed prefix the front-end can match on.
func (a *App) RegisterGlobalHotkey(shortcut string) error {
	if err := a.hotkeys.Register(shortcut); err != nil {
		slog.Debug("[DEBUG-HOTKEY] register failed", "shortcut", shortcut, "error", err)
		return err
	}
	return nil
}

// UnregisterGlobalHotkey releases the global hotkey. It succeeds when none
// is bound.
func (a *App) UnregisterGlobalHotkey() error {
	if err := a.hotkeys.Unregister(); err != nil {
		slog.Debug("[DEBUG-HOTKEY] unregister failed", "error", err)
		return err
	}
	return nil
}

// GetCurrentHotkey returns the bound shortcut text exactly as registered, or
// nil when idle. The error is always nil.
func (a *App) GetCurrentHotkey() (*string, error) {
	current, ok := a.hotkeys.Current()
	if !ok {
		return nil, nil
	}
	return &current, nil
}
