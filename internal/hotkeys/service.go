// Package hotkeys binds one global keyboard shortcut to application events.
//
// Manager owns the single active shortcut and talks to a ShortcutService,
// the OS-level global hotkey table. The production service lives in
// oshotkeys so that this package stays free of cgo; FakeShortcuts is an
// in-memory stand-in for tests and headless runs.
package hotkeys

// Application event names published on press and release.
const (
	EventPressed  = "hotkey-pressed"
	EventReleased = "hotkey-released"
)

// State is the transition reported for a registered shortcut.
type State int

const (
	Pressed State = iota
	Released
)

func (s State) String() string {
	switch s {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Handler receives press/release notifications for one shortcut.
// It runs on a subsystem goroutine, never under Manager's lock.
type Handler func(shortcut Shortcut, state State)

// ShortcutService is the OS global shortcut subsystem.
type ShortcutService interface {
	// Parse converts accelerator text into a descriptor.
	Parse(text string) (Shortcut, error)
	// OnShortcut installs or replaces the handler for shortcut.
	OnShortcut(shortcut Shortcut, handler Handler) error
	// RemoveHandler drops the handler for shortcut.
	RemoveHandler(shortcut Shortcut) error
	// Register makes shortcut active system-wide.
	Register(shortcut Shortcut) error
	// Unregister releases a system-wide registration.
	Unregister(shortcut Shortcut) error
}

// EventEmitter broadcasts payload-less application events.
type EventEmitter interface {
	Emit(name string)
}

// EventEmitterFunc adapts a function into EventEmitter.
type EventEmitterFunc func(name string)

func (f EventEmitterFunc) Emit(name string) {
	f(name)
}

type noopEmitter struct{}

func (noopEmitter) Emit(string) {}
