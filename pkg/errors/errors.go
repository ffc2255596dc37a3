// Package errors provides structured error types for rigstash.
//
// Every failure the engine reports across a package boundary is an [*Error]
// carrying a machine-readable [Code]. Codes let callers tell fatal failures
// (a node could not be created) from recoverable ones (a connection was
// skipped) without string matching.
//
// # Error Codes
//
// The engine taxonomy maps onto codes as follows:
//   - UNKNOWN_TYPE: registry miss with no capability fallback
//   - MISSING_CREATION_DATA: creation required but the record has none
//   - CREATION_FAILED, CONNECTION_FAILED, ATTRIBUTE_NOT_FOUND: scene boundary failures
//   - INFLUENCE_RESOLUTION: an influence can be neither found nor replaced
//   - DEGENERATE_BASIS: the local deformation basis is singular
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownType, "no handler for %q", tag)
//	if errors.Is(err, errors.ErrCodeUnknownType) {
//	    // fall back or report
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCreationFailed, cause, "create %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidRecord Code = "INVALID_RECORD"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidName   Code = "INVALID_NAME"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Registry errors
	ErrCodeUnknownType    Code = "UNKNOWN_TYPE"
	ErrCodeDuplicateType  Code = "DUPLICATE_TYPE"
	ErrCodeRegistryFrozen Code = "REGISTRY_FROZEN"

	// Load errors
	ErrCodeMissingCreationData Code = "MISSING_CREATION_DATA"
	ErrCodeInfluenceResolution Code = "INFLUENCE_RESOLUTION"

	// Scene boundary errors
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeCreationFailed    Code = "CREATION_FAILED"
	ErrCodeConnectionFailed  Code = "CONNECTION_FAILED"
	ErrCodeAttributeNotFound Code = "ATTRIBUTE_NOT_FOUND"

	// Numerical errors
	ErrCodeDegenerateBasis Code = "DEGENERATE_BASIS"

	// Storage errors
	ErrCodeStore Code = "STORE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code,
// so an outer wrapper with a different code does not hide an inner match.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err aborts a load. Creation failures and
// missing creation data are fatal; scene boundary failures on connections,
// attributes and weights are recovered by the caller.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeCreationFailed, ErrCodeMissingCreationData, ErrCodeUnknownType:
		return true
	}
	return false
}
