package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a gateway failure. Every error surfaced by the gateway
// or an adapter carries exactly one kind; callers branch on the kind, never on
// backend-specific error types.
type ErrorKind string

// The gateway error taxonomy.
const (
	// KindValidation marks a malformed or out-of-range request field.
	KindValidation ErrorKind = "validation"
	// KindUnsupportedOperation marks a request no provider family can serve.
	KindUnsupportedOperation ErrorKind = "unsupported_operation"
	// KindServiceUnavailable marks missing credentials for the resolved provider.
	KindServiceUnavailable ErrorKind = "service_unavailable"
	// KindUpstream marks a backend failure or malformed backend payload.
	KindUpstream ErrorKind = "upstream"
	// KindCancelled marks a caller-initiated timeout or cancellation.
	KindCancelled ErrorKind = "cancelled"
	// KindPersistence marks a usage-ledger write failure. It is logged, never
	// returned to the caller of a generation operation.
	KindPersistence ErrorKind = "persistence"
)

// Error is the one error type that crosses the adapter boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.err }

// Is lets errors.Is match two *Error values by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// Validation builds a KindValidation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unsupported builds a KindUnsupportedOperation error.
func Unsupported(msg string) *Error {
	return &Error{Kind: KindUnsupportedOperation, Message: msg}
}

// Unavailable builds a KindServiceUnavailable error.
func Unavailable(provider string, missing []string) *Error {
	return &Error{
		Kind:    KindServiceUnavailable,
		Message: fmt.Sprintf("provider %s is not configured (missing %v)", provider, missing),
	}
}

// Upstream wraps a backend failure, preserving the backend's own message for
// the caller to act on while hiding its concrete type.
func Upstream(provider string, err error) *Error {
	// Caller cancellation is not an upstream fault; classify it as such even
	// when it surfaces through the backend client.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled(err)
	}
	return &Error{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("%s request failed: %v", provider, err),
		err:     err,
	}
}

// Cancelled wraps a context cancellation.
func Cancelled(err error) *Error {
	return &Error{Kind: KindCancelled, Message: "request cancelled", err: err}
}

// Persistence wraps a ledger write failure.
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "usage record write failed", err: err}
}

// errNoChoices marks a structurally valid backend response with an empty
// choice list, treated as a malformed payload.
var errNoChoices = errors.New("backend returned an empty response")

// KindOf extracts the taxonomy kind from any error; non-gateway errors report
// KindUpstream.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}
