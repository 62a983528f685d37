package hotkeys

import (
	"errors"
	"log/slog"
	"sync"
)

// Manager binds at most one global shortcut to the application event bus.
// Register, Unregister and Current serialize on mu. Handlers installed on the
// subsystem only touch the emitter and never take mu.
type Manager struct {
	mu      sync.Mutex
	current *string
	// held is false when current survives a failed replacement: the
	// subsystem already released it, so Unregister only clears state.
	held bool

	service  ShortcutService
	emitter  EventEmitter
	onChange func(text string)
}

// ManagerOptions configures optional Manager hooks.
type ManagerOptions struct {
	// OnChange is called under the manager lock with the shortcut text that
	// presses are attributed to ("" when none). It runs before the OS
	// registration, so the first press already sees the new label. It must
	// not call back into the Manager.
	OnChange func(text string)
}

// NewManager creates an idle manager. A nil emitter drops events.
func NewManager(service ShortcutService, emitter EventEmitter, opts ...ManagerOptions) *Manager {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	m := &Manager{service: service, emitter: emitter}
	for _, o := range opts {
		if o.OnChange != nil {
			m.onChange = o.OnChange
		}
	}
	return m
}

// Register replaces the active shortcut with text.
//
// The previous shortcut is released first, best-effort. If text then fails to
// parse or register, the manager keeps reporting the previous string even
// though the OS no longer holds it; Unregister clears it without touching
// the subsystem again.
func (m *Manager) Register(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.held {
		m.releaseBestEffort(*m.current)
		m.held = false
	}

	sc, err := m.service.Parse(text)
	if err != nil {
		return newError(prefixInvalidFormat, err)
	}

	emitter := m.emitter
	handler := func(_ Shortcut, state State) {
		switch state {
		case Pressed:
			emitter.Emit(EventPressed)
		case Released:
			emitter.Emit(EventReleased)
		}
	}
	if err := m.service.OnShortcut(sc, handler); err != nil {
		return newError(prefixRegister, err)
	}
	m.notify(text)
	if err := m.service.Register(sc); err != nil {
		if rmErr := m.service.RemoveHandler(sc); rmErr != nil {
			slog.Debug("[DEBUG-HOTKEY] ignoring remove handler failure after failed register",
				"shortcut", text, "error", rmErr)
		}
		m.notify("")
		return newError(prefixRegister, err)
	}

	stored := text
	m.current = &stored
	m.held = true
	slog.Debug("[DEBUG-HOTKEY] shortcut registered", "shortcut", text, "canonical", sc.String())
	return nil
}

// releaseBestEffort drops the handler and OS registration of previous.
// Failures are logged and ignored. Caller must hold m.mu.
func (m *Manager) releaseBestEffort(previous string) {
	sc, err := m.service.Parse(previous)
	if err != nil {
		slog.Warn("[WARN-HOTKEY] stored shortcut no longer parses, skipping release",
			"shortcut", previous, "error", err)
		return
	}
	if err := m.service.RemoveHandler(sc); err != nil {
		slog.Debug("[DEBUG-HOTKEY] ignoring remove handler failure for previous shortcut",
			"shortcut", previous, "error", err)
	}
	if err := m.service.Unregister(sc); err != nil {
		slog.Debug("[DEBUG-HOTKEY] ignoring unregister failure for previous shortcut",
			"shortcut", previous, "error", err)
	}
}

// Unregister releases the active shortcut. It is a no-op when idle.
// A stored string that no longer parses is cleared without touching the OS.
func (m *Manager) Unregister() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	previous := *m.current

	if !m.held {
		slog.Debug("[DEBUG-HOTKEY] clearing shortcut released by a failed replacement", "shortcut", previous)
		m.clear()
		return nil
	}

	sc, err := m.service.Parse(previous)
	if err != nil {
		slog.Warn("[WARN-HOTKEY] clearing stored shortcut that no longer parses",
			"shortcut", previous, "error", err)
		m.clear()
		return nil
	}
	// ErrNoHandler means an earlier attempt removed it before the OS
	// unregister failed.
	if err := m.service.RemoveHandler(sc); err != nil && !errors.Is(err, ErrNoHandler) {
		return newError(prefixRemoveHandler, err)
	}
	if err := m.service.Unregister(sc); err != nil {
		return newError(prefixUnregister, err)
	}

	m.clear()
	slog.Debug("[DEBUG-HOTKEY] shortcut unregistered", "shortcut", previous)
	return nil
}

// Current returns the stored shortcut text exactly as it was registered.
func (m *Manager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", false
	}
	return *m.current, true
}

// Resync replays the OnChange hook with the shortcut the OS currently holds.
// Used when a hook target appears after registration.
func (m *Manager) Resync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.held {
		m.notify(*m.current)
		return
	}
	m.notify("")
}

func (m *Manager) clear() {
	m.current = nil
	m.held = false
	m.notify("")
}

func (m *Manager) notify(text string) {
	if m.onChange != nil {
		m.onChange(text)
	}
}
