// Package domainerrors provides coded errors for the service layer.
//
// Services return these so transports can map them to protocol status codes
// without string matching. Infrastructure facts (record missing, version
// stale) are expressed with pkg/platform/sentinel and translated into coded
// errors at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and metrics.
type Code string

const (
	// CodeInvalidInput marks malformed values caught at a trust boundary
	// (bad UUID, bad DID syntax).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks requests missing required fields.
	CodeBadRequest Code = "bad_request"
	// CodeValidation marks domain-level validation failures such as unknown
	// credential types or claims that do not satisfy a schema.
	CodeValidation Code = "validation_error"
	// CodeUnauthorized marks failed passphrase checks. Callers must not be
	// able to distinguish a missing wallet from a wrong passphrase.
	CodeUnauthorized Code = "authentication_failed"
	// CodeForbidden marks operations on resources the caller does not own.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks lookups of records that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks uniqueness violations and stale optimistic-
	// concurrency writes (AlreadyExists, AlreadyRevoked, ConcurrencyConflict).
	CodeConflict Code = "conflict"
	// CodeLocked marks signing attempts against a wallet without an active
	// unlock session.
	CodeLocked Code = "wallet_locked"
	// CodeUnavailable marks failures of external collaborators, e.g. a
	// delegated DID resolver that cannot be reached.
	CodeUnavailable Code = "unavailable"
	// CodeInvariantViolation marks attempts to break a model invariant; it
	// is normally translated to a more specific code before leaving a service.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks unexpected faults. The message is logged in full
	// but never exposed to callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is / errors.As for logging.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.cause
			continue
		}
		return false
	}
	return false
}

// Is reports whether err is a coded error at all.
func Is(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when err
// carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or a generic message for
// uncoded errors so internal detail never leaks to callers.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
