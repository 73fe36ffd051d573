// Package apierror provides standardized error types for the API.
// Every error returned to clients goes through this package so recovery logic
// is data-driven: conflicts carry the blocking shift's id and register instead
// of forcing callers to parse a human-readable message.
package apierror

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeShiftConflict Code = "SHIFT_CONFLICT"
	CodeInvalidState  Code = "INVALID_STATE"
	CodeStorage       Code = "STORAGE_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeRateLimited   Code = "RATE_LIMITED"
)

// Error is the canonical domain error. Meta carries machine-readable context
// (e.g. shift_id / register_id on a SHIFT_CONFLICT).
type Error struct {
	Code   Code              `json:"code"`
	Detail string            `json:"detail"`
	Meta   map[string]string `json:"meta,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Detail + ": " + e.cause.Error()
	}
	return e.Detail
}

// Unwrap exposes the underlying cause to errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

func Validation(detail string) *Error {
	return &Error{Code: CodeValidation, Detail: detail}
}

func NotFound(detail string) *Error {
	return &Error{Code: CodeNotFound, Detail: detail}
}

func InvalidState(detail string) *Error {
	return &Error{Code: CodeInvalidState, Detail: detail}
}

func ShiftConflict(detail, shiftID, registerID string) *Error {
	return &Error{
		Code:   CodeShiftConflict,
		Detail: detail,
		Meta:   map[string]string{"shift_id": shiftID, "register_id": registerID},
	}
}

// Storage wraps a persistence failure. The cause stays reachable through
// errors.Unwrap for logging, but is never serialized to clients.
func Storage(err error) *Error {
	return &Error{Code: CodeStorage, Detail: "storage failure", cause: err}
}

// As unwraps err into *Error when possible.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeShiftConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeStorage:
		return http.StatusInternalServerError
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// FieldErrors wraps multiple validation field errors.
type FieldErrors struct {
	Code   Code              `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewFieldErrors(fields map[string]string) *FieldErrors {
	return &FieldErrors{Code: CodeValidation, Detail: "validation failed", Fields: fields}
}
