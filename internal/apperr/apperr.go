// Package apperr defines the error kinds surfaced by the API and their HTTP
// status mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindMissingCredential      Kind = "missing_credential"
	KindInvalidCredential      Kind = "invalid_credential"
	KindAuthServiceUnavailable Kind = "auth_service_unavailable"
	KindInternalAuth           Kind = "internal_auth_error"
	KindValidation             Kind = "validation_error"
	KindNotFound               Kind = "not_found"
	KindTransactionFailure     Kind = "transaction_failure"
	KindExternalCleanupFailure Kind = "external_cleanup_failure"
	KindRateLimited            Kind = "rate_limited"
	KindInternal               Kind = "internal"
)

// Error is a classified failure. Message is safe to show to callers; Err
// carries the underlying cause and is only exposed outside production.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// Detail returns the underlying cause text, empty when there is none.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Err == nil {
			return ""
		}
		return e.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func Status(kind Kind) int {
	switch kind {
	case KindMissingCredential:
		return http.StatusUnauthorized
	case KindInvalidCredential:
		return http.StatusForbidden
	case KindAuthServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
