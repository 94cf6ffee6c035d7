// Package apperr is the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	Validation   Code = "VALIDATION_ERROR"
	NotFound     Code = "NOT_FOUND"
	Conflict     Code = "CONFLICT"
	DuplicateKey Code = "DUPLICATE_KEY"
	Forbidden    Code = "FORBIDDEN"
	Internal     Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, msg string) error { return &Error{Code: code, Message: msg} }

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, err error) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the code, Internal for anything not raised by this package.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// MessageOf returns the user facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func Is(err error, code Code) bool { return CodeOf(err) == code }
