package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeValidation     = "validation_error"
	CodeBackend        = "backend_error"
	CodeConflict       = "conflict"
	CodePartialFailure = "partial_failure"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Unauthorized(msg string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, CodeForbidden, errors.New(msg))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

// Backend wraps a data or storage failure. The cause stays reachable through
// errors.As so callers can still classify it.
func Backend(op string, err error) *Error {
	return New(http.StatusInternalServerError, CodeBackend, fmt.Errorf("%s: %w", op, err))
}

// ItemError is one failed element of a bulk operation.
type ItemError struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// PartialFailure reports a bulk operation where some elements failed. Work
// that succeeded is not rolled back.
type PartialFailure struct {
	Succeeded int
	Failed    int
	Items     []ItemError
}

func (p *PartialFailure) Error() string {
	return fmt.Sprintf("bulk operation partially failed: %d succeeded, %d failed", p.Succeeded, p.Failed)
}

// StatusOf maps any error to the HTTP status it should surface as.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return http.StatusMultiStatus
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the machine-readable code for err.
func CodeOf(err error) string {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return CodePartialFailure
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return CodeBackend
}
