//go:build darwin || windows

// Package oshotkeys is the OS-backed hotkeys.ShortcutService. It is the only
// package that links golang.design/x/hotkey, whose Linux build panics at init
// without an X display; Linux builds get a service that refuses to register.
package oshotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"

	"keybridge/internal/hotkeys"
	"keybridge/internal/workerutil"
)

// osHotkey is the subset of *hotkey.Hotkey used here.
type osHotkey interface {
	Register() error
	Unregister() error
	Keydown() <-chan hotkey.Event
	Keyup() <-chan hotkey.Event
}

func newOSHotkey(mods []hotkey.Modifier, key hotkey.Key) osHotkey {
	return hotkey.New(mods, key)
}

// listener is one registration's event pump. A fresh listener is created on
// every Register so that Unregister can wait on it without holding s.mu.
type listener struct {
	hk     osHotkey
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type systemEntry struct {
	handler  hotkeys.Handler
	listener *listener // nil while not registered
}

// Service implements hotkeys.ShortcutService on top of golang.design/x/hotkey.
type Service struct {
	mu      sync.Mutex
	entries map[string]*systemEntry // keyed by Shortcut.String()

	// newHotkey is a test seam for the OS binding.
	newHotkey func(mods []hotkey.Modifier, key hotkey.Key) osHotkey
}

// New returns the shortcut service for this platform.
func New() hotkeys.ShortcutService {
	return NewService()
}

// NewService creates the OS-backed shortcut service.
func NewService() *Service {
	return &Service{
		entries:   map[string]*systemEntry{},
		newHotkey: newOSHotkey,
	}
}

// Parse implements hotkeys.ShortcutService.
func (s *Service) Parse(text string) (hotkeys.Shortcut, error) {
	sc, err := hotkeys.ParseShortcut(text)
	if err != nil {
		return hotkeys.Shortcut{}, err
	}
	if _, _, err := toPlatform(sc); err != nil {
		return hotkeys.Shortcut{}, err
	}
	return sc, nil
}

// OnShortcut implements hotkeys.ShortcutService.
func (s *Service) OnShortcut(sc hotkeys.Shortcut, handler hotkeys.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[sc.String()]
	if entry == nil {
		entry = &systemEntry{}
		s.entries[sc.String()] = entry
	}
	entry.handler = handler
	return nil
}

// RemoveHandler implements hotkeys.ShortcutService. Events that arrive while the
// shortcut is still registered are drained and dropped.
func (s *Service) RemoveHandler(sc hotkeys.Shortcut) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[sc.String()]
	if entry == nil || entry.handler == nil {
		return fmt.Errorf("%s: %w", sc, hotkeys.ErrNoHandler)
	}
	entry.handler = nil
	if entry.listener == nil {
		delete(s.entries, sc.String())
	}
	return nil
}

// Register implements hotkeys.ShortcutService.
func (s *Service) Register(sc hotkeys.Shortcut) error {
	mods, key, err := toPlatform(sc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[sc.String()]
	if entry != nil && entry.listener != nil {
		return fmt.Errorf("%s: %w", sc, hotkeys.ErrAlreadyRegistered)
	}

	hk := s.newHotkey(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register %s: %w", sc, err)
	}
	if entry == nil {
		entry = &systemEntry{}
		s.entries[sc.String()] = entry
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &listener{hk: hk, cancel: cancel}
	entry.listener = l
	workerutil.RunWithPanicRecovery(ctx, "hotkey-listener", &l.wg, func(ctx context.Context) {
		s.pump(ctx, sc, hk)
	}, workerutil.RecoveryOptions{MaxRetries: 3})

	slog.Debug("[DEBUG-HOTKEY] os shortcut registered", "shortcut", sc.String())
	return nil
}

// Unregister implements hotkeys.ShortcutService. The handler, if any, stays installed.
func (s *Service) Unregister(sc hotkeys.Shortcut) error {
	s.mu.Lock()
	entry := s.entries[sc.String()]
	if entry == nil || entry.listener == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", sc, hotkeys.ErrNotRegistered)
	}
	l := entry.listener
	if err := l.hk.Unregister(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("unregister %s: %w", sc, err)
	}
	entry.listener = nil
	if entry.handler == nil {
		delete(s.entries, sc.String())
	}
	s.mu.Unlock()

	// The pump takes s.mu in dispatch, so wait only after unlocking.
	l.cancel()
	l.wg.Wait()
	slog.Debug("[DEBUG-HOTKEY] os shortcut unregistered", "shortcut", sc.String())
	return nil
}

func (s *Service) pump(ctx context.Context, sc hotkeys.Shortcut, hk osHotkey) {
	keydown := hk.Keydown()
	keyup := hk.Keyup()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			s.dispatch(sc, hotkeys.Pressed)
		case _, ok := <-keyup:
			if !ok {
				return
			}
			s.dispatch(sc, hotkeys.Released)
		}
	}
}

func (s *Service) dispatch(sc hotkeys.Shortcut, state hotkeys.State) {
	s.mu.Lock()
	var handler hotkeys.Handler
	if entry := s.entries[sc.String()]; entry != nil {
		handler = entry.handler
	}
	s.mu.Unlock()

	if handler == nil {
		slog.Debug("[DEBUG-HOTKEY] event dropped: no handler", "shortcut", sc.String(), "state", state.String())
		return
	}
	handler(sc, state)
}
