//go:build !darwin && !windows

// Package oshotkeys is the OS-backed hotkeys.ShortcutService. This build has
// no global hotkey binding: handlers are tracked in memory and Register
// fails with hotkeys.ErrUnsupported.
package oshotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"keybridge/internal/hotkeys"
)

// Service implements hotkeys.ShortcutService for platforms without a global
// hotkey binding.
type Service struct {
	mu       sync.Mutex
	handlers map[string]hotkeys.Handler
}

// New returns the shortcut service for this platform.
func New() hotkeys.ShortcutService {
	slog.Warn("[WARN-HOTKEY] global shortcuts are not supported on this platform")
	return NewService()
}

// NewService creates a service that refuses every registration.
func NewService() *Service {
	return &Service{handlers: map[string]hotkeys.Handler{}}
}

// Parse implements hotkeys.ShortcutService with the shared grammar.
func (s *Service) Parse(text string) (hotkeys.Shortcut, error) {
	return hotkeys.ParseShortcut(text)
}

// OnShortcut implements hotkeys.ShortcutService.
func (s *Service) OnShortcut(sc hotkeys.Shortcut, handler hotkeys.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[sc.String()] = handler
	return nil
}

// RemoveHandler implements hotkeys.ShortcutService.
func (s *Service) RemoveHandler(sc hotkeys.Shortcut) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[sc.String()]; !ok {
		return fmt.Errorf("%s: %w", sc, hotkeys.ErrNoHandler)
	}
	delete(s.handlers, sc.String())
	return nil
}

// Register always fails with hotkeys.ErrUnsupported.
func (s *Service) Register(hotkeys.Shortcut) error {
	return hotkeys.ErrUnsupported
}

// Unregister always fails: nothing can be registered.
func (s *Service) Unregister(sc hotkeys.Shortcut) error {
	return fmt.Errorf("%s: %w", sc, hotkeys.ErrNotRegistered)
}
