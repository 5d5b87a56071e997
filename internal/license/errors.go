package license

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Match them with errors.Is.
var (
	ErrInvalidFormat      = errors.New("invalid format")
	ErrInvalidRange       = errors.New("invalid range")
	ErrDuplicateFeature   = errors.New("duplicate feature")
	ErrCorruptFormat      = errors.New("corrupt license format")
	ErrUnsupportedVersion = errors.New("unsupported license format version")
	ErrIdentityMismatch   = errors.New("license identity mismatch")
	ErrHardwareMismatch   = errors.New("license hardware mismatch")
	ErrIO                 = errors.New("license i/o failure")
)

// Error carries the kind of a failure together with the operation and the
// offending value so that callers can log or render it.
type Error struct {
	Op    string
	Kind  error
	Value string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind error, value string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Value: value, Err: cause}
}

// KindOf returns the sentinel kind of err, or nil when err did not come from
// this package.
func KindOf(err error) error {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	for _, kind := range []error{
		ErrInvalidFormat, ErrInvalidRange, ErrDuplicateFeature, ErrCorruptFormat,
		ErrUnsupportedVersion, ErrIdentityMismatch, ErrHardwareMismatch, ErrIO,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
