package hotkeys

import (
	"fmt"
	"sync"
)

// FakeShortcuts is an in-memory ShortcutService. It parses with the same
// grammar as the OS service but never touches the OS, so it can back
// headless runs and tests. Failure fields, when non-nil, are returned from
// the matching method instead of performing it.
type FakeShortcuts struct {
	mu         sync.Mutex
	handlers   map[string]Handler
	registered map[string]Shortcut

	ParseErr         error
	OnShortcutErr    error
	RemoveHandlerErr error
	RegisterErr      error
	UnregisterErr    error

	calls []string
}

// NewFakeShortcuts returns an empty fake subsystem.
func NewFakeShortcuts() *FakeShortcuts {
	return &FakeShortcuts{
		handlers:   map[string]Handler{},
		registered: map[string]Shortcut{},
	}
}

func (f *FakeShortcuts) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *FakeShortcuts) Parse(text string) (Shortcut, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("parse " + text)
	if f.ParseErr != nil {
		return Shortcut{}, f.ParseErr
	}
	return ParseShortcut(text)
}

func (f *FakeShortcuts) OnShortcut(sc Shortcut, handler Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("on " + sc.String())
	if f.OnShortcutErr != nil {
		return f.OnShortcutErr
	}
	f.handlers[sc.String()] = handler
	return nil
}

func (f *FakeShortcuts) RemoveHandler(sc Shortcut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove " + sc.String())
	if f.RemoveHandlerErr != nil {
		return f.RemoveHandlerErr
	}
	if _, ok := f.handlers[sc.String()]; !ok {
		return fmt.Errorf("%s: %w", sc, ErrNoHandler)
	}
	delete(f.handlers, sc.String())
	return nil
}

func (f *FakeShortcuts) Register(sc Shortcut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("register " + sc.String())
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	if _, ok := f.registered[sc.String()]; ok {
		return fmt.Errorf("%s: %w", sc, ErrAlreadyRegistered)
	}
	f.registered[sc.String()] = sc
	return nil
}

func (f *FakeShortcuts) Unregister(sc Shortcut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unregister " + sc.String())
	if f.UnregisterErr != nil {
		return f.UnregisterErr
	}
	if _, ok := f.registered[sc.String()]; !ok {
		return fmt.Errorf("%s: %w", sc, ErrNotRegistered)
	}
	delete(f.registered, sc.String())
	return nil
}

// SetFailure swaps one injected failure under the fake's lock.
// name is one of "parse", "on", "remove", "register", "unregister".
func (f *FakeShortcuts) SetFailure(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case "parse":
		f.ParseErr = err
	case "on":
		f.OnShortcutErr = err
	case "remove":
		f.RemoveHandlerErr = err
	case "register":
		f.RegisterErr = err
	case "unregister":
		f.UnregisterErr = err
	default:
		panic("hotkeys: unknown fake failure " + name)
	}
}

// Registered returns the canonical forms of all registered shortcuts.
func (f *FakeShortcuts) Registered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.registered))
	for name := range f.registered {
		out = append(out, name)
	}
	return out
}

// HasHandler reports whether a handler is installed for the canonical form.
func (f *FakeShortcuts) HasHandler(canonical string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[canonical]
	return ok
}

// Calls returns the recorded call log, e.g. "register Ctrl+K".
func (f *FakeShortcuts) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// SimulatePress delivers a press to the handler of a registered shortcut.
// It reports false when nothing would have fired.
func (f *FakeShortcuts) SimulatePress(canonical string) bool {
	return f.simulate(canonical, Pressed)
}

// SimulateRelease delivers a release to the handler of a registered shortcut.
func (f *FakeShortcuts) SimulateRelease(canonical string) bool {
	return f.simulate(canonical, Released)
}

func (f *FakeShortcuts) simulate(canonical string, state State) bool {
	f.mu.Lock()
	sc, registered := f.registered[canonical]
	handler := f.handlers[canonical]
	f.mu.Unlock()

	if !registered || handler == nil {
		return false
	}
	handler(sc, state)
	return true
}
