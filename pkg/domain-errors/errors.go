// Package dErrors provides coded domain errors.
//
// Services return these so transports can map failures to wire responses and
// callers can branch on the failure kind without string matching. Stores and
// other infrastructure return pkg/platform/sentinel errors instead; services
// translate at the boundary.
package dErrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure kind. Codes are stable wire values.
type Code string

// Platform-generic codes.
const (
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeUnavailable        Code = "unavailable"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded error with an optional cause.
type Error struct {
	code    Code
	message string
	cause   error
}

// New builds a coded error.
func New(code Code, message string) error {
	return &Error{code: code, message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap exposes the cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match two coded errors by code and message, so tests can
// compare against a freshly built expectation.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == te.code && e.message == te.message
}

// Code returns the failure kind.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the human-readable message without the cause chain.
func (e *Error) Message() string {
	return e.message
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if errors.As(err, &de) {
			if de.code == code {
				return true
			}
			err = de.cause
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the code of the outermost coded error in the chain.
// Uncoded errors report CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
