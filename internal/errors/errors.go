// Package errors provides a lightweight structured error type (DocGateError)
// for category-based classification and exit-code mapping in the CLI.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a DocGate error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// External system integration errors
	CategoryNetwork ErrorCategory = "network"
	CategoryGit     ErrorCategory = "git"

	// Generation and verification errors
	CategoryGenerator  ErrorCategory = "generator"
	CategoryRender     ErrorCategory = "render"
	CategoryRewrite    ErrorCategory = "rewrite"
	CategoryDrift      ErrorCategory = "drift"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryWatch    ErrorCategory = "watch"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// DocGateError is a structured error with category, retryability, and context
type DocGateError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for DocGateError
type ContextFields map[string]any

// Error implements the error interface
func (e *DocGateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *DocGateError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *DocGateError) WithContext(key string, value any) *DocGateError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new DocGateError
func New(category ErrorCategory, severity ErrorSeverity, message string) *DocGateError {
	return &DocGateError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new DocGateError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *DocGateError {
	return &DocGateError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// Retryable creates a new retryable DocGateError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *DocGateError {
	return &DocGateError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable DocGateError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *DocGateError {
	return &DocGateError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category, unwrapping as needed
func IsCategory(err error, category ErrorCategory) bool {
	var dge *DocGateError
	if stderrors.As(err, &dge) {
		return dge.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var dge *DocGateError
	if stderrors.As(err, &dge) {
		return dge.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a DocGateError
func GetCategory(err error) ErrorCategory {
	var dge *DocGateError
	if stderrors.As(err, &dge) {
		return dge.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error (invalid usage)
func ValidationError(message string) *DocGateError {
	return &DocGateError{
		Category:  CategoryValidation,
		Severity:  SeverityWarning,
		Message:   message,
		Retryable: false,
	}
}

// DriftError creates a new drift error for a failed checked-in gate
func DriftError(message string) *DocGateError {
	return &DocGateError{
		Category:  CategoryDrift,
		Severity:  SeverityError,
		Message:   message,
		Retryable: false,
	}
}

// WrapError wraps an existing error with a new DocGateError
func WrapError(err error, category ErrorCategory, message string) *DocGateError {
	return &DocGateError{
		Category:  category,
		Severity:  SeverityError,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}
