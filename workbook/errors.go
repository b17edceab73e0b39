package workbook

import (
	"errors"
	"fmt"
)

// AppErrorCode represents gRPC-style error codes for workbook operations.
// formula errors are values stored in cells, never AppErrors.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error. Errors raised by lower layers that do not carry enough
	// information are converted to this code.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates the caller passed a malformed address,
	// formula or name.
	InvalidArgument AppErrorCode = 3

	// NotFound means some requested entity (e.g., worksheet or defined
	// name) was not found.
	NotFound AppErrorCode = 5

	// AlreadyExists means an attempt to create an entity failed because one
	// already exists.
	AlreadyExists AppErrorCode = 6

	// ResourceExhausted indicates an edit would push cells past the end of
	// the grid.
	ResourceExhausted AppErrorCode = 8

	// FailedPrecondition indicates operation was rejected because the
	// workbook is not in a state required for the operation's execution,
	// e.g. it has been closed or has no worksheets.
	FailedPrecondition AppErrorCode = 9

	// OutOfRange means operation was attempted past the valid range.
	OutOfRange AppErrorCode = 11

	// Unimplemented indicates operation is not implemented or not
	// supported/enabled in this workbook.
	Unimplemented AppErrorCode = 12

	// Internal errors. Means some invariants expected by underlying
	// system has been broken.
	Internal AppErrorCode = 13
)

var codeNames = map[AppErrorCode]string{
	OK:                 "ok",
	Unknown:            "unknown",
	InvalidArgument:    "invalid argument",
	NotFound:           "not found",
	AlreadyExists:      "already exists",
	ResourceExhausted:  "resource exhausted",
	FailedPrecondition: "failed precondition",
	OutOfRange:         "out of range",
	Unimplemented:      "unimplemented",
	Internal:           "internal",
}

func (c AppErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// AppError represents errors at the application level (not formula
// errors). Err is the underlying cause, if any.
type AppError struct {
	Code    AppErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func errorf(code AppErrorCode, format string, args ...any) *AppError {
	return NewApplicationError(code, fmt.Sprintf(format, args...))
}

func wrap(code AppErrorCode, err error, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, Unknown
// for other errors and OK for nil
func CodeOf(err error) AppErrorCode {
	if err == nil {
		return OK
	}
	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}
	return Unknown
}
