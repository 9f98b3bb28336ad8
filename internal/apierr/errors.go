package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies an API error for HTTP status mapping.
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeValidation      Code = "VALIDATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

// Error carries a code plus a caller-facing message. Validation errors hold
// every accumulated violation so the client sees all of them at once.
type Error struct {
	Code       Code
	Message    string
	Violations []string
}

func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return strings.Join(e.Violations, ", ")
	}
	return e.Message
}

// Invalid marks malformed or missing input.
func Invalid(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound marks a lookup miss.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict marks a uniqueness violation.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage or infrastructure failure.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: err.Error()}
}

// Validation bundles accumulated business-rule violations into one error.
func Validation(violations []string) *Error {
	return &Error{Code: CodeValidation, Violations: violations}
}

// HTTPStatus maps an error to the status the dispatch layer should return.
func HTTPStatus(err error) int {
	var api *Error
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeValidation:
			return http.StatusUnprocessableEntity
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var api *Error
	return errors.As(err, &api) && api.Code == code
}
