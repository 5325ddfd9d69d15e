package domain

import (
	"fmt"
)

// ErrorKind is the classification of a failed load attempt.
type ErrorKind string

const (
	KindRateLimited     ErrorKind = "rate_limited"     // throttling or anti-bot defence
	KindTimeout         ErrorKind = "timeout"          // no response within the loader deadline
	KindUnauthenticated ErrorKind = "unauthenticated"  // credentials rejected or missing
	KindUnavailable     ErrorKind = "unavailable"      // remote down or unreachable
	KindEndpointMissing ErrorKind = "endpoint_missing" // access path does not exist on this route
	KindUnclassified    ErrorKind = "unclassified"     // anything else; fatal
)

// Kinds lists every kind in the taxonomy.
var Kinds = []ErrorKind{
	KindRateLimited,
	KindTimeout,
	KindUnauthenticated,
	KindUnavailable,
	KindEndpointMissing,
	KindUnclassified,
}

// Retryable reports whether a failure of this kind lets the source move on to the next route.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindTimeout, KindUnauthenticated, KindUnavailable, KindEndpointMissing:
		return true
	default:
		return false
	}
}

// Label is the human readable tag used in logs, e.g. "[Timeout]".
func (k ErrorKind) Label() string {
	switch k {
	case KindRateLimited:
		return "Rate Limited"
	case KindTimeout:
		return "Timeout"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindUnavailable:
		return "Unavailable"
	case KindEndpointMissing:
		return "Endpoint Missing"
	default:
		return "Unclassified"
	}
}

// ClassifiedError is a load failure tagged with its kind.
// Loaders return it directly so classification never depends on error types.
type ClassifiedError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError tags err with kind.
func NewError(kind ErrorKind, err error) *ClassifiedError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ClassifiedError{Kind: kind, Message: msg, Err: err}
}

// Errorf builds a ClassifiedError from a format string.
func Errorf(kind ErrorKind, format string, args ...any) *ClassifiedError {
	err := fmt.Errorf(format, args...)
	return &ClassifiedError{Kind: kind, Message: err.Error(), Err: err}
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind.Label(), e.Message)
}

// Unwrap returns the original error.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error permits trying the next route.
func (e *ClassifiedError) Retryable() bool {
	return e.Kind.Retryable()
}

// ErrorKind makes ClassifiedError satisfy the kinded capability as well.
func (e *ClassifiedError) ErrorKind() ErrorKind {
	return e.Kind
}
