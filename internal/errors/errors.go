// Package errors defines the stable error codes surfaced by gene-ledger.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// StoreUnavailable indicates the database cannot be opened or reached
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// NotFound indicates no genes or records match the request
	NotFound ErrorCode = "NOT_FOUND"
	// MalformedRecord indicates stored data failed to decode
	MalformedRecord ErrorCode = "MALFORMED_RECORD"
	// InvalidInput indicates a caller supplied an unusable gene or argument
	InvalidInput ErrorCode = "INVALID_INPUT"
	// InternalError indicates an unexpected failure
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// GeneError carries a code, a message and an optional cause.
type GeneError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// New creates a GeneError without a cause.
func New(code ErrorCode, message string) *GeneError {
	return &GeneError{Code: code, Message: message}
}

// Newf creates a GeneError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *GeneError {
	return &GeneError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a GeneError that wraps cause.
func Wrap(code ErrorCode, message string, cause error) *GeneError {
	return &GeneError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *GeneError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Detail is the message and cause without the code prefix.
func (e *GeneError) Detail() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Message returns the Detail of the first GeneError in err's chain, or
// err.Error() when there is none.
func Message(err error) string {
	var ge *GeneError
	if stderrors.As(err, &ge) {
		return ge.Detail()
	}
	return err.Error()
}

// Unwrap returns the underlying error
func (e *GeneError) Unwrap() error {
	return e.cause
}

// CodeOf returns the code of the first GeneError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ge *GeneError
	if stderrors.As(err, &ge) {
		return ge.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}
