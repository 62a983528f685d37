// Package config loads and saves the KeyBridge settings file.
//
// The file is YAML. Invalid values never block startup: they are logged and
// replaced with defaults. The active shortcut is not stored here; the
// front-end decides what to register on every launch.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

const (
	appDirName     = "KeyBridge"
	configFileName = "config.yaml"

	maxConfigFileBytes int64 = 1 << 20
	maxValidPort             = 65535

	defaultHistoryMaxEntries = 1000
	maxHistoryMaxEntries     = 100000
)

// Log levels accepted by LogLevel.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var userHomeDirFn = os.UserHomeDir

var defaultPathWarnings struct {
	mu       sync.Mutex
	messages []string
}

// ConsumeDefaultPathWarnings returns and clears the user-visible warnings
// recorded when DefaultPath had to fall back to the temp directory.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarnings.mu.Lock()
	defer defaultPathWarnings.mu.Unlock()
	out := defaultPathWarnings.messages
	defaultPathWarnings.messages = nil
	return out
}

// Config is the on-disk settings document.
type Config struct {
	LogLevel    string            `yaml:"log_level" json:"log_level"`
	EventStream EventStreamConfig `yaml:"event_stream" json:"event_stream"`
	History     HistoryConfig     `yaml:"history" json:"history"`
	ControlPipe ControlPipeConfig `yaml:"control_pipe" json:"control_pipe"`
}

// EventStreamConfig controls the local WebSocket event feed.
// Port 0 lets the OS pick a free port.
type EventStreamConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

// HistoryConfig controls activation recording.
type HistoryConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	MaxEntries int  `yaml:"max_entries" json:"max_entries"`
}

// ControlPipeConfig controls the local command pipe used by keybridgectl.
type ControlPipeConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	return Config{
		LogLevel:    LogLevelInfo,
		EventStream: EventStreamConfig{Enabled: true},
		History:     HistoryConfig{Enabled: true, MaxEntries: defaultHistoryMaxEntries},
		ControlPipe: ControlPipeConfig{Enabled: true},
	}
}

// Clone returns an independent copy of src.
// Config holds no reference types today; callers still go through Clone so
// that adding one later does not introduce aliasing.
func Clone(src Config) Config {
	return src
}

// DefaultPath resolves <LOCALAPPDATA|APPDATA|~/.config>/KeyBridge/config.yaml,
// falling back to the temp directory when no home directory is available.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			defaultPathWarnings.mu.Lock()
			defaultPathWarnings.messages = append(defaultPathWarnings.messages,
				"Config path fallback: no LOCALAPPDATA, APPDATA or home directory. Settings are stored in the temp directory.")
			defaultPathWarnings.mu.Unlock()
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// Dir returns the directory holding the config file at path. Sibling data
// (history database, diagnostics logs) lives next to it.
func Dir(path string) string {
	return filepath.Dir(path)
}

// Load reads path. A missing or empty file yields defaults. A file that
// fails to parse yields defaults and the parse error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}
	normalize(&cfg)
	return cfg, nil
}

// EnsureFile loads path and writes the defaults if the file does not exist.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save normalizes cfg and writes it atomically. It returns the config that
// was actually written.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	normalize(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", normalizedPath)
	return cfg, nil
}

// normalize resets invalid values to their defaults in place.
func normalize(cfg *Config) {
	defaults := DefaultConfig()

	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		cfg.LogLevel = level
	case "warning":
		cfg.LogLevel = LogLevelWarn
	case "":
		cfg.LogLevel = defaults.LogLevel
	default:
		slog.Warn("[WARN-CONFIG] unknown log_level, using default",
			"configured", cfg.LogLevel, "default", defaults.LogLevel)
		cfg.LogLevel = defaults.LogLevel
	}

	if cfg.EventStream.Port < 0 || cfg.EventStream.Port > maxValidPort {
		slog.Warn("[WARN-CONFIG] event_stream.port out of range (0-65535), falling back to 0 (auto-assign)",
			"configured", cfg.EventStream.Port)
		cfg.EventStream.Port = 0
	}

	switch {
	case cfg.History.MaxEntries <= 0:
		if cfg.History.MaxEntries < 0 {
			slog.Warn("[WARN-CONFIG] history.max_entries must be positive, using default",
				"configured", cfg.History.MaxEntries)
		}
		cfg.History.MaxEntries = defaults.History.MaxEntries
	case cfg.History.MaxEntries > maxHistoryMaxEntries:
		slog.Warn("[WARN-CONFIG] history.max_entries too large, clamping",
			"configured", cfg.History.MaxEntries, "max", maxHistoryMaxEntries)
		cfg.History.MaxEntries = maxHistoryMaxEntries
	}
}

// SlogLevel maps the normalized LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
