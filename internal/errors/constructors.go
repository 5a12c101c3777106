package errors

import (
	"fmt"
	"strings"
)

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *DocGateError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *DocGateError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *DocGateError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Pipeline errors

func GeneratorError(cause error) *DocGateError {
	return Wrap(cause, CategoryGenerator, SeverityFatal, "stub generation failed")
}

func RenderError(cause error) *DocGateError {
	return Wrap(cause, CategoryRender, SeverityFatal, "HTML render failed")
}

func RewriteError(target string, cause error) *DocGateError {
	return Wrap(cause, CategoryRewrite, SeverityFatal, "stub rewrite failed").
		WithContext("target", target)
}

func StagingError(operation string, cause error) *DocGateError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "staging operation failed").
		WithContext("operation", operation)
}

// Gate errors

func SourcesDrift(dir string) *DocGateError {
	msg := fmt.Sprintf("generated sources in %s differ from the checked-in state; check in the regenerated files", dir)
	return DriftError(msg).WithContext("dir", dir)
}

// PublishedDrift carries the porcelain status listing so the operator sees
// exactly which rendered files moved.
func PublishedDrift(dir, status string) *DocGateError {
	msg := fmt.Sprintf("published site in %s differs from the checked-in state; check in the rendered output", dir)
	if status = strings.TrimRight(status, "\n"); status != "" {
		msg += "\n" + status
	}
	return DriftError(msg).WithContext("dir", dir)
}

// Git errors

func GitOpenError(path string, cause error) *DocGateError {
	return Wrap(cause, CategoryGit, SeverityFatal, "repository open failed").
		WithContext("path", path)
}

func GitStatusError(cause error) *DocGateError {
	return Wrap(cause, CategoryGit, SeverityFatal, "worktree status failed")
}

func GitRestoreError(path string, cause error) *DocGateError {
	return Wrap(cause, CategoryGit, SeverityFatal, "failed to restore volatile file").
		WithContext("path", path)
}

// Internal errors

func InternalError(message string, cause error) *DocGateError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
