package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an application error for HTTP mapping.
type Code int

const (
	CodeValidation Code = iota + 1000
	CodeAuthentication
	CodeNotFound
	CodeAmbiguous
	CodeConflict
	CodeStorage
)

// Error is the application error type carried across service boundaries.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Code {
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeValidation, CodeAmbiguous:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func Authentication(message string) *Error {
	return &Error{Code: CodeAuthentication, Message: message}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Ambiguous(format string, args ...interface{}) *Error {
	return &Error{Code: CodeAmbiguous, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func Storage(err error) *Error {
	return &Error{Code: CodeStorage, Message: "storage error", Err: err}
}

// CodeOf returns the code of the first *Error in the chain, or CodeStorage
// when the error is not an application error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStorage
}

// StatusOf returns the HTTP status for any error.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}
