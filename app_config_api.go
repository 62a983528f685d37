package main

import (
	"log/slog"
	"strings"
	"time"

	"keybridge/internal/config"
)

type configUpdatedEvent struct {
	Config             config.Config `json:"config"`
	Version            uint64        `json:"version"`
	UpdatedAtUnixMilli int64         `json:"updated_at_unix_milli"`
}

// GetConfig returns the loaded config.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetConfigAndFlushWarnings returns the loaded config and emits any pending
// startup warnings.
func (a *App) GetConfigAndFlushWarnings() config.Config {
	a.flushPendingConfigLoadWarnings()
	return a.getConfigSnapshot()
}

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarning() string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	if len(a.configLoadWarnings) == 0 {
		return ""
	}
	message := strings.Join(a.configLoadWarnings, "\n")
	a.configLoadWarnings = nil
	return message
}

func (a *App) flushPendingConfigLoadWarnings() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if warning := a.consumePendingConfigLoadWarning(); warning != "" {
		a.emitRuntimeEventWithContext(ctx, "config:load-failed", map[string]string{
			"message": warning,
		})
	}
}

// SaveConfig validates and persists cfg, applies it, and emits
// "config:updated" with the normalized config.
func (a *App) SaveConfig(cfg config.Config) error {
	event, err := a.saveConfigWithLock(cfg)
	if err != nil {
		return err
	}
	a.applyRuntimeConfig(event)
	// Emitted outside cfgSaveMu. Concurrent saves are ordered by Version and
	// the front-end treats the highest version as authoritative.
	a.emitRuntimeEvent("config:updated", event)
	return nil
}

// saveConfigWithLock persists cfg, updates the snapshot and bumps the event
// version under cfgSaveMu.
func (a *App) saveConfigWithLock(cfg config.Config) (configUpdatedEvent, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	normalized, err := config.Save(a.configPath, cfg)
	if err != nil {
		return configUpdatedEvent{}, err
	}
	a.setConfigSnapshot(normalized)
	return a.newConfigUpdatedEvent(normalized), nil
}

func (a *App) newConfigUpdatedEvent(cfg config.Config) configUpdatedEvent {
	return configUpdatedEvent{
		Config:             config.Clone(cfg),
		Version:            a.configEventVersion.Add(1),
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	}
}

// onConfigFileChanged handles reloads from the config watcher. Writes made
// by SaveConfig also trigger it; an unchanged document is ignored.
func (a *App) onConfigFileChanged(cfg config.Config) {
	a.cfgSaveMu.Lock()
	changed := a.swapConfigSnapshot(cfg)
	var event configUpdatedEvent
	if changed {
		event = a.newConfigUpdatedEvent(cfg)
	}
	a.cfgSaveMu.Unlock()

	if !changed {
		slog.Debug("[DEBUG-CONFIG] reloaded config unchanged, skipping")
		return
	}
	a.applyRuntimeConfig(event)
	a.emitRuntimeEvent("config:updated", event)
}

// applyRuntimeConfig applies settings that take effect without a restart,
// skipping events older than the last applied one.
func (a *App) applyRuntimeConfig(event configUpdatedEvent) {
	a.cfgApplyMu.Lock()
	defer a.cfgApplyMu.Unlock()

	if event.Version <= a.cfgAppliedVersion {
		slog.Debug("[DEBUG-CONFIG] skipped stale config apply",
			"received", event.Version, "applied", a.cfgAppliedVersion)
		return
	}
	a.cfgAppliedVersion = event.Version

	cfg := event.Config
	a.logLevel.Set(cfg.SlogLevel())
	a.applyHistoryConfig(cfg.History)

	if a.streamEnabled() != cfg.EventStream.Enabled || a.controlEnabled() != cfg.ControlPipe.Enabled {
		slog.Info("[CONFIG] event stream and control pipe changes take effect after restart")
	}
}

func (a *App) streamEnabled() bool {
	return a.streamHub.Load() != nil
}

func (a *App) controlEnabled() bool {
	return a.controlServer != nil
}
