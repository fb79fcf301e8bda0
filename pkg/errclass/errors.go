// Package errclass defines stable, machine-readable error classes.
package errclass

import "fmt"

// Error is a stable, machine-readable error class.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error that matches e via errors.Is and also unwraps to cause.
func (e *Error) Wrap(cause error) error {
	if cause == nil {
		return e
	}
	return &wrapped{class: e.WithMessage(cause.Error()), cause: cause}
}

type wrapped struct {
	class *Error
	cause error
}

func (w *wrapped) Error() string        { return w.class.Error() }
func (w *wrapped) Is(target error) bool { return w.class.Is(target) }
func (w *wrapped) Unwrap() error        { return w.cause }

// Stable error classes.
var (
	ErrStoreUnavailable = &Error{Code: "E_STORE_UNAVAILABLE"}
	ErrStoreCorrupt     = &Error{Code: "E_STORE_CORRUPT"}
	ErrKeyInvalid       = &Error{Code: "E_KEY_INVALID"}
	ErrSweepInProgress  = &Error{Code: "E_SWEEP_IN_PROGRESS"}
	ErrSweepCancelled   = &Error{Code: "E_SWEEP_CANCELLED"}
	ErrPhaseFailed      = &Error{Code: "E_PHASE_FAILED"}
	ErrConfigInvalid    = &Error{Code: "E_CONFIG_INVALID"}
	ErrServiceUnknown   = &Error{Code: "E_SERVICE_UNKNOWN"}
	ErrLockConflict     = &Error{Code: "E_LOCK_CONFLICT"}
	ErrLockNotHeld      = &Error{Code: "E_LOCK_NOT_HELD"}
	ErrAuditChainBroken = &Error{Code: "E_AUDIT_CHAIN_BROKEN"}
)
