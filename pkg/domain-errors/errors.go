// Package pkgerrors provides coded domain errors produced at service
// boundaries. Transport layers map codes to HTTP statuses; callers test for
// codes with Is rather than matching message strings.
package pkgerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and caller branching.
type Code string

const (
	// CodeBadRequest covers missing or malformed input: the caller's fault.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound covers lookups for certificates that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict covers operations attempted in the wrong lifecycle state,
	// including attempts to overwrite a write-once chain proof field.
	CodeConflict Code = "conflict"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeChainUnavailable covers chain service failures. These never corrupt
	// the store; the certificate stays usable in its prior state.
	CodeChainUnavailable Code = "chain_unavailable"
	// CodeInternal covers store failures and programming errors.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Field is set for validation errors that
// concern a single input field, so messages stay deterministic and clients
// can highlight the offending field.
type Error struct {
	Code    Code
	Message string
	Field   string
	wrapped error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New constructs a coded error with a plain message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewField constructs a validation error naming the offending field.
func NewField(code Code, field, message string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

// Wrap attaches a cause so errors.Is/As keep working through the domain layer.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, wrapped: cause}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// FieldOf returns the field a validation error names, or "".
func FieldOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Field
	}
	return ""
}

// HTTPStatus maps a domain error to an HTTP status code. Unknown errors map
// to 500 so nothing leaks as an accidental success.
func HTTPStatus(err error) int {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	switch domainErr.Code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeChainUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
