// Package errors provides structured error types for drawsync.
//
// Every failure that can end a sync run carries a machine-readable [Code] so
// that the CLI, the HTTP trigger and tests can tell a configuration mistake
// apart from a broken document or a corrupt manifest without string matching.
//
// # Error Codes
//
//   - INVALID_SELECTION: neither all pages nor a single page was requested
//   - INVALID_INPUT: other option validation failures
//   - DOCUMENT_PARSE: the source document is missing, unreadable or malformed
//   - UNKNOWN_PAGE: the requested page index does not exist in the document
//   - MANIFEST_CORRUPT: a manifest exists but cannot be decoded
//   - RENDER_FAILED: the external renderer failed for one page
//   - IO_ERROR: persisting state failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownPage, "page %d not found", idx)
//	if errors.Is(err, errors.ErrCodeUnknownPage) {
//	    // report and exit
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the sync pipeline.
const (
	// Configuration errors
	ErrCodeInvalidSelection Code = "INVALID_SELECTION"
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"

	// Input errors
	ErrCodeDocumentParse   Code = "DOCUMENT_PARSE"
	ErrCodeUnknownPage     Code = "UNKNOWN_PAGE"
	ErrCodeManifestCorrupt Code = "MANIFEST_CORRUPT"

	// Execution errors
	ErrCodeRenderFailed Code = "RENDER_FAILED"
	ErrCodeTimeout      Code = "TIMEOUT"
	ErrCodeIO           Code = "IO_ERROR"

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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
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

// IsConfiguration reports whether err is a configuration error: a missing or
// ambiguous page selection, or any other invalid option.
func IsConfiguration(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidSelection, ErrCodeInvalidInput, ErrCodeInvalidFormat:
		return true
	}
	return false
}

// PageError records the failure of one render job.
type PageError struct {
	Index int    // Page index within the document
	Name  string // Page name
	Err   error  // Underlying cause
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Index, e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PageError) Unwrap() error { return e.Err }

// Code returns the error code for this error type.
func (e *PageError) Code() Code {
	return ErrCodeRenderFailed
}
