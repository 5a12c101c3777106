// Package errors provides sentinel errors for the external documentation
// tool adapters. These enable consistent classification while keeping
// user-facing messages descriptive via wrapping.
package errors

import "errors"

var (
	// ErrGeneratorNotFound indicates the stub generator executable was not detected on PATH.
	ErrGeneratorNotFound = errors.New("stub generator binary not found")
	// ErrGeneratorFailed indicates the stub generator returned a non-zero exit status.
	ErrGeneratorFailed = errors.New("stub generation failed")
	// ErrBuilderNotFound indicates the documentation compiler executable was not detected on PATH.
	ErrBuilderNotFound = errors.New("doc builder binary not found")
	// ErrBuildFailed indicates the documentation compiler returned a non-zero exit status.
	ErrBuildFailed = errors.New("doc build failed")
)
