// Package singleinstance keeps one KeyBridge process per user session.
package singleinstance

import (
	"errors"

	"keybridge/internal/userutil"
)

// ErrAlreadyRunning is returned by TryLock when another process holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// DefaultName returns the per-user lock name. TryLock maps it onto a named
// mutex on Windows and a lock file elsewhere.
func DefaultName() string {
	return "KeyBridge-" + userutil.CurrentUsername()
}
