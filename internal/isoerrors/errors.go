package isoerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error per spec §7. It drives the propagation
// policy: transport-transient is absorbed, wire errors are NACKed,
// session errors unwind one pipeline, transport-fatal escapes the loop.
type Kind int

const (
	KindTransportTransient Kind = iota
	KindTransportFatal
	KindProtocol
	KindSession
	KindHostOS
)

func (k Kind) String() string {
	switch k {
	case KindTransportTransient:
		return "transport-transient"
	case KindTransportFatal:
		return "transport-fatal"
	case KindProtocol:
		return "protocol"
	case KindSession:
		return "session"
	case KindHostOS:
		return "host-os"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a Kind and, for session/wire errors, the ISO
// 11783-13 Code that should be reflected on the wire.
type Error struct {
	Kind  Kind
	Code  Code
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.cause.Error())
	}
	return e.Msg
}

// Cause lets Cause()-chasing code (the teacher's own Cause()
// convention) find the underlying error.
func (e *Error) Cause() error { return e.cause }

func (e *Error) Unwrap() error { return e.cause }

// New builds a new *Error with no cause.
func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Wrap builds a new *Error around cause. Wrap(nil, ...) returns nil, the
// same convention the teacher's withMessage helper uses.
func Wrap(cause error, kind Kind, code Code, msg string) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, Msg: msg, cause: cause}
}

// Fatal reports whether err (or any error in its cause chain) is a
// transport-fatal error that should escape the event loop.
func Fatal(err error) bool {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind == KindTransportFatal
	}
	return false
}

// CodeOf extracts the wire Code from err, defaulting to CodeOther for
// errors that never carried one.
func CodeOf(err error) Code {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return CodeOther
}

// ErrTimedOut is returned to pending-request callbacks whose deadline
// elapsed before a matching response arrived (§3, §4.5, §5).
var ErrTimedOut = New(KindSession, CodeOther, "timed out waiting for response")

// ErrNoHandle is the sentinel for ISOBUSFS_FILE_HANDLE_ERROR (0xFF); it
// is never a valid key in the handle table (§3 invariants).
var ErrNoHandle = New(KindSession, CodeInvalidHandle, "no handle")
