// Package apperr defines the caller-facing error taxonomy of the gateway.
// Services return these typed errors and the HTTP layer maps them to status
// codes; the upstream status of a failed downstream call is kept for diagnostics.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindInternal is the default for errors that fit no other category.
	KindInternal Kind = iota
	// KindValidation indicates malformed client input.
	KindValidation
	// KindNotFound indicates geocoding resolved nothing.
	KindNotFound
	// KindUpstream indicates a downstream transport, status or schema failure.
	KindUpstream
	// KindLocalResource indicates a local storage failure.
	KindLocalResource
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_error"
	case KindLocalResource:
		return "local_resource_error"
	default:
		return "internal_error"
	}
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	// UpstreamStatus is the HTTP status returned by the downstream service, 0 if unknown.
	UpstreamStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("%s (upstream status %d)", e.Message, e.UpstreamStatus)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Upstream creates an upstream error. status may be 0 when unknown.
func Upstream(message string, status int, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, UpstreamStatus: status, Err: err}
}

// LocalResource creates a local storage error.
func LocalResource(message string, err error) *Error {
	return &Error{Kind: KindLocalResource, Message: message, Err: err}
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// UpstreamStatus returns the upstream status carried by err, or 0.
func UpstreamStatus(err error) int {
	if e, ok := As(err); ok {
		return e.UpstreamStatus
	}
	return 0
}

// Detail returns the bare message of an *Error in the chain, or err.Error().
func Detail(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	return err.Error()
}
