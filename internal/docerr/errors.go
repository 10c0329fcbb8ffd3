// Package docerr defines the typed error taxonomy shared across docbox
// components. Every error surfaced across a component boundary carries a
// Kind, a short user-safe Message, and an optional wrapped cause that is
// only ever written to logs, never returned to a caller.
package docerr

import "fmt"

// Kind classifies an error for callers that need to branch on it (HTTP
// status mapping, retry policy, etc.) without inspecting message text.
type Kind int

const (
	// KindNotFound indicates the entity is absent in the expected scope.
	KindNotFound Kind = iota
	// KindInvalidInput indicates malformed or semantically invalid input.
	KindInvalidInput
	// KindConflict indicates a uniqueness or state conflict.
	KindConflict
	// KindDependency indicates a failure from an external system
	// (storage, search, secrets, event bus) with details suppressed.
	KindDependency
	// KindProcessing indicates a file-processing failure (format,
	// encryption, extraction).
	KindProcessing
	// KindTransient indicates a retryable failure (timeout, rate limit).
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	case KindProcessing:
		return "processing"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is the typed error carried across docbox component boundaries.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New creates an Error of the given kind with a user-safe message. cause may
// be nil; when set it is included in Error() for logs but callers should
// prefer Unwrap()/errors.Is against the Kind rather than message matching.
func New(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Error implements the error interface, including the cause for logs.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// SafeMessage returns only the user-facing message, omitting the cause.
// Use this when surfacing the error to a client to avoid leaking storage
// keys, credentials, or backend detail.
func (e *Error) SafeMessage() string { return e.message }

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(message string) *Error { return New(KindInvalidInput, message, nil) }

// Conflict builds a KindConflict error.
func Conflict(message string) *Error { return New(KindConflict, message, nil) }

// Dependency builds a KindDependency error, redacting cause from the
// message while preserving it for logs.
func Dependency(message string, cause error) *Error {
	return New(KindDependency, message, cause)
}

// Processing builds a KindProcessing error.
func Processing(message string, cause error) *Error {
	return New(KindProcessing, message, cause)
}

// Transient builds a KindTransient error.
func Transient(message string, cause error) *Error {
	return New(KindTransient, message, cause)
}

// Is allows errors.Is(err, docerr.KindNotFound) style checks by comparing
// Kind when both operands are *Error.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == other.kind
}
