package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the UI layer needs to react to it.
type Kind string

const (
	KindConfig            Kind = "CONFIG"
	KindAuth              Kind = "AUTH"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindTransient         Kind = "TRANSIENT"
	KindTimeout           Kind = "TIMEOUT"
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
	KindElementNotFound   Kind = "ELEMENT_NOT_FOUND"
	KindInjectionFailure  Kind = "INJECTION_FAILURE"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Error represents a classified error with a retry hint.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new error of the given kind.
func New(kind Kind, message string) error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewRetryable creates a new retryable error of the given kind.
func NewRetryable(kind Kind, message string) error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: true,
	}
}

// Wrap wraps an error with a kind and message.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetKind returns the error kind if one is attached, or the empty Kind.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsRetryable reports whether the error carries a retryable hint.
// Unclassified errors are never retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsKind reports whether the error carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsConfig returns true if the error is a configuration error
func IsConfig(err error) bool { return IsKind(err, KindConfig) }

// IsAuth returns true if the error is an authentication error
func IsAuth(err error) bool { return IsKind(err, KindAuth) }

// IsRateLimited returns true if the error is a rate limit error
func IsRateLimited(err error) bool { return IsKind(err, KindRateLimited) }

// IsTimeout returns true if the error is a timeout error
func IsTimeout(err error) bool { return IsKind(err, KindTimeout) }

// IsElementNotFound returns true if the error is a locator exhaustion error
func IsElementNotFound(err error) bool { return IsKind(err, KindElementNotFound) }
