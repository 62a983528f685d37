package hotkeys

import "errors"

// Message prefixes for errors surfaced to front-end callers.
// The frontend matches on these, so they must not change.
const (
	prefixInvalidFormat = "Invalid shortcut format: "
	prefixRegister      = "Failed to register shortcut: "
	prefixRemoveHandler = "Failed to remove handler: "
	prefixUnregister    = "Failed to unregister: "
)

var (
	// ErrNotRegistered is returned when unregistering a shortcut the
	// subsystem does not hold.
	ErrNotRegistered = errors.New("shortcut is not registered")
	// ErrAlreadyRegistered is returned when registering a shortcut twice.
	ErrAlreadyRegistered = errors.New("shortcut is already registered")
	// ErrNoHandler is returned when removing a handler that was never installed.
	ErrNoHandler = errors.New("no handler installed for shortcut")
	// ErrUnsupported is returned by services that cannot hold global
	// shortcuts on this platform.
	ErrUnsupported = errors.New("unsupported")
)

// Error is the single error kind returned by Manager operations.
// It serializes as {"message": "..."} for the frontend.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func newError(prefix string, cause error) *Error {
	return &Error{Message: prefix + cause.Error()}
}
