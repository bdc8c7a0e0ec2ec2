package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for propagation and HTTP mapping.
type Kind string

const (
	KindUnauthorized        Kind = "Unauthorized"
	KindNotFound            Kind = "NotFound"
	KindConflict            Kind = "Conflict"
	KindGone                Kind = "Gone"
	KindPreconditionFailed  Kind = "PreconditionFailed"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindUpstreamRateLimited Kind = "UpstreamRateLimited"
	KindSignatureInvalid    Kind = "SignatureInvalid"
	KindDeadline            Kind = "Deadline"
	KindInternal            Kind = "Internal"
)

// AppError carries a Kind alongside the message so handlers can map
// failures to statuses without string matching.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// E builds a new AppError.
func E(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapE wraps an underlying error with a kind and message.
func WrapE(kind Kind, err error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain, defaulting to Internal.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable reports whether the failure should be retried across attempts.
// SignatureInvalid is terminal and must never be retried.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUpstreamUnavailable, KindUpstreamRateLimited, KindDeadline:
		return true
	}
	return false
}

// HTTPStatus maps an error kind to the response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized, KindSignatureInvalid:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGone:
		return http.StatusGone
	case KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case KindUpstreamUnavailable, KindDeadline:
		return http.StatusServiceUnavailable
	case KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
