package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies pipeline failures so handlers and the orchestrator
// can decide between retry, skip, and surface-to-caller.
type ErrorKind string

const (
	KindInputInvalid          ErrorKind = "input_invalid"
	KindAccessDenied          ErrorKind = "access_denied"
	KindNotFound              ErrorKind = "not_found"
	KindUpstreamBlocked       ErrorKind = "upstream_blocked"
	KindUpstreamTransient     ErrorKind = "upstream_transient"
	KindExtractionFailed      ErrorKind = "extraction_failed"
	KindMetadataFailed        ErrorKind = "metadata_failed"
	KindProviderQuotaExceeded ErrorKind = "provider_quota_exceeded"
	KindIndexFailure          ErrorKind = "index_failure"
)

// PipelineError carries an ErrorKind alongside the wrapped cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError creates a PipelineError without a cause.
func NewError(kind ErrorKind, message string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message}
}

// WrapError creates a PipelineError wrapping an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the ErrorKind of err, or empty string if err carries none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether the error kind warrants a retry at the owning layer.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindUpstreamTransient, KindProviderQuotaExceeded, KindIndexFailure:
		return true
	}
	return false
}

// HTTPStatus maps an error kind to the HTTP status a handler should return.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInputInvalid:
		return http.StatusBadRequest
	case KindAccessDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindProviderQuotaExceeded:
		return http.StatusServiceUnavailable
	case KindUpstreamBlocked, KindUpstreamTransient, KindExtractionFailed, KindMetadataFailed, KindIndexFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
