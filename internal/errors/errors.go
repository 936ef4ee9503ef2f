package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Glimpse error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED" // 422
	ErrCorruptRecord    ErrorCode = "CORRUPT_RECORD"    // 422
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrPersistence      ErrorCode = "PERSISTENCE"       // 500
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// GlimpseError represents a structured error with code, status, and details.
type GlimpseError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *GlimpseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *GlimpseError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GlimpseError {
	return &GlimpseError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a capture cannot be found.
func NewNotFound(identifier string) *GlimpseError {
	return &GlimpseError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("capture not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *GlimpseError {
	return &GlimpseError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewValidationFailed creates a 422 error carrying a validator's message verbatim.
func NewValidationFailed(msg string) *GlimpseError {
	if msg == "" {
		msg = "validation failed"
	}
	return &GlimpseError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: msg,
	}
}

// NewCorruptRecord creates a 422 error for a record file that cannot be used.
func NewCorruptRecord(path string, cause error) *GlimpseError {
	msg := fmt.Sprintf("corrupt record: %s", path)
	if cause != nil {
		msg = fmt.Sprintf("corrupt record: %s: %v", path, cause)
	}
	return &GlimpseError{
		Code:    ErrCorruptRecord,
		Status:  422,
		Message: msg,
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// NewCancelled creates a 499 error when an operation is interrupted.
func NewCancelled(operation string) *GlimpseError {
	return &GlimpseError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewPersistence creates a 500 error for failed filesystem writes (mkdir, write, copy).
func NewPersistence(action string, err error) *GlimpseError {
	msg := action
	if err != nil {
		msg = fmt.Sprintf("%s: %v", action, err)
	}
	return &GlimpseError{
		Code:    ErrPersistence,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *GlimpseError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GlimpseError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a GlimpseError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GlimpseError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

// As returns the GlimpseError in err's chain, if any.
func As(err error) (*GlimpseError, bool) {
	var gErr *GlimpseError
	if stderrors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}
