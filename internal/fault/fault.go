// Package fault carries the error taxonomy shared by all services: every
// failure a handler can surface to a caller is classified by Kind, and each
// fault carries a machine-readable code alongside the human message.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindValidation is a missing or malformed required field.
	KindValidation Kind = iota
	// KindRange is a value outside its physically plausible bounds.
	KindRange
	// KindConflict is a uniqueness violation (duplicate firmware version).
	KindConflict
	// KindNotFound is an unknown device, version, or file.
	KindNotFound
	// KindIntegrity is an unreadable binary or metadata pointing at a
	// missing file.
	KindIntegrity
	// KindStorage is a durable-write failure.
	KindStorage
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Range(code, format string, args ...any) *Error {
	return &Error{Kind: KindRange, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Integrity(code, msg string, err error) *Error {
	return &Error{Kind: KindIntegrity, Code: code, Message: msg, Err: err}
}

func Storage(code, msg string, err error) *Error {
	return &Error{Kind: KindStorage, Code: code, Message: msg, Err: err}
}

// KindOf reports the taxonomy kind of err. The second return is false when
// err carries no fault classification, which handlers treat as an internal
// error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// CodeOf returns the machine-readable code of err, or "internal_error" when
// err is unclassified.
func CodeOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return "internal_error"
}
