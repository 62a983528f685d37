//go:build windows

package singleinstance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// Lock holds a Windows named mutex for single-instance enforcement.
// The kernel releases the mutex when the owning process terminates, so a
// crashed KeyBridge never leaves a stale lock behind.
type Lock struct {
	handle windows.Handle
}

// TryLock acquires the system-wide mutex Global\<name>.
// It returns ErrAlreadyRunning if another process already holds it. The
// Global\ namespace spans sessions, so at most one instance runs per machine.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	ptr, err := windows.UTF16PtrFromString(`Global\` + name)
	if err != nil {
		return nil, fmt.Errorf("invalid lock name %q: %w", name, err)
	}
	h, err := windows.CreateMutex(nil, true, ptr)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		// CreateMutex still returns a handle to the existing mutex. Close it.
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, fmt.Errorf("CreateMutex %q: %w", name, err)
	}
	return &Lock{handle: h}, nil
}

// Release closes the mutex handle. Safe to call on a nil receiver and
// idempotent.
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}
