package ghost

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of logical error kinds from spec §7.
// The Command Processor maps every handler error to a failed Response
// whose Error string is produced by Error.Error(), which always embeds
// the Kind so callers and logs can grep for it.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidArgument
	KindNotFound
	KindAlreadyExists
	KindInvalidState
	KindStartFailed
	KindStopFailed
	KindStorageFailed
	KindBusUnavailable
	KindTimeout
)

// String renders the kind using the names from spec §7.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindInvalidState:
		return "InvalidState"
	case KindStartFailed:
		return "StartFailed"
	case KindStopFailed:
		return "StopFailed"
	case KindStorageFailed:
		return "StorageFailed"
	case KindBusUnavailable:
		return "BusUnavailable"
	case KindTimeout:
		return "Timeout"
	default:
		return "Internal"
	}
}

// Error is Ghost's sum-typed error: a Kind plus context and an optional
// wrapped cause. It implements errors.Is against the Kind sentinels
// below (ErrNotFound, ErrAlreadyExists, ...) and Unwrap so wrapped
// causes stay inspectable.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an existing error.
func Wrap(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches against the per-kind sentinels below so callers can write
// errors.Is(err, ghost.ErrNotFound) without caring about the message.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == sentinel.Kind
}

// Per-kind sentinels for errors.Is comparisons. These carry no message
// and are never returned directly — only compared against.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrStartFailed     = &Error{Kind: KindStartFailed}
	ErrStopFailed      = &Error{Kind: KindStopFailed}
	ErrStorageFailed   = &Error{Kind: KindStorageFailed}
	ErrBusUnavailable  = &Error{Kind: KindBusUnavailable}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrInternal        = &Error{Kind: KindInternal}
)

// KindOf extracts the ErrorKind from err, defaulting to KindInternal for
// errors that are not *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
