// Package errors defines the coded errors techtree returns to the CLI and
// the HTTP API.
//
// A [Code] names the failure class and decides the HTTP status; the message
// is for people. Codes survive wrapping with fmt.Errorf("%w"):
//
//	err := errors.Wrap(errors.ErrCodeInvalidTechTable, cause, "load %s", path)
//	if errors.Is(err, errors.ErrCodeInvalidTechTable) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable failure class.
type Code string

const (
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidTechTable Code = "INVALID_TECH_TABLE"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeTechNotFound Code = "TECH_NOT_FOUND"
	ErrCodeSaveNotFound Code = "SAVE_NOT_FOUND"

	// A save already holds the maximum research, or a tech's prerequisites
	// are not all unlocked.
	ErrCodeSaveLimit  Code = "SAVE_LIMIT"
	ErrCodeTechLocked Code = "TECH_LOCKED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

var statusByCode = map[Code]int{
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidTechTable: http.StatusBadRequest,
	ErrCodeInvalidFormat:    http.StatusBadRequest,
	ErrCodeInvalidConfig:    http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeTechNotFound:     http.StatusNotFound,
	ErrCodeSaveNotFound:     http.StatusNotFound,
	ErrCodeSaveLimit:        http.StatusConflict,
	ErrCodeTechLocked:       http.StatusConflict,
	ErrCodeUnsupported:      http.StatusNotImplemented,
}

// Status returns the HTTP status for c. Unknown codes are server errors.
func (c Code) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error carries a Code, a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// coded returns the outermost *Error in err's chain.
func coded(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost coded error in err's chain has code.
func Is(err error, code Code) bool {
	e, ok := coded(err)
	return ok && e.Code == code
}

// GetCode returns err's code, or "" for uncoded errors.
func GetCode(err error) Code {
	if e, ok := coded(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of a coded error without the code and
// cause, or err's text otherwise.
func UserMessage(err error) string {
	if e, ok := coded(err); ok {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps err to a response status. Uncoded errors are 500.
func HTTPStatus(err error) int {
	return GetCode(err).Status()
}
