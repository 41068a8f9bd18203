package eventpipe

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured eventpipe error with context and errno
// mapping. It carries one of four error classes (spec §7): configuration,
// rendezvous, transport, or contract violation. All are fatal — the
// transport never attempts local recovery.
type Error struct {
	Op    string    // Operation that failed (e.g., "Open", "AcquireEventSlot")
	Class ErrClass  // High-level error class
	Errno syscall.Errno
	Msg   string
	Inner error
}

// ErrClass categorizes the four fatal error classes the spec defines.
type ErrClass string

const (
	ErrClassConfiguration       ErrClass = "configuration"
	ErrClassRendezvous          ErrClass = "rendezvous"
	ErrClassTransport           ErrClass = "transport"
	ErrClassContractViolation   ErrClass = "contract violation"
)

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Class)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("eventpipe: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("eventpipe: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Inner }

// Is provides errors.Is support for class-based comparison.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Class == te.Class
	}
	return false
}

// NewError creates a new structured error.
func NewError(op string, class ErrClass, msg string) *Error {
	return &Error{Op: op, Class: class, Msg: msg}
}

// NewErrorWithErrno creates a new structured error carrying a syscall
// errno, typically from a failed mmap/open/read/write during rendezvous
// or the hot path.
func NewErrorWithErrno(op string, class ErrClass, errno syscall.Errno) *Error {
	return &Error{Op: op, Class: class, Errno: errno, Msg: errno.Error()}
}

// WrapError wraps an existing error with eventpipe context under the given
// class. An inner *Error keeps its own class instead.
func WrapError(op string, class ErrClass, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ee, ok := inner.(*Error); ok {
		return &Error{Op: op, Class: ee.Class, Errno: ee.Errno, Msg: ee.Msg, Inner: ee.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Class: class, Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Class: class, Msg: inner.Error(), Inner: inner}
}

// IsClass reports whether err is an *Error of the given class.
func IsClass(err error, class ErrClass) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}
