package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var dge *DocGateError
	if stderrors.As(err, &dge) {
		return a.exitCodeFromDocGate(dge)
	}

	return 1
}

// exitCodeFromDocGate maps DocGateError to exit codes. Drift is pinned to 1:
// CI scripts key on that value to distinguish "not checked in" from tool failures.
func (a *CLIErrorAdapter) exitCodeFromDocGate(err *DocGateError) int {
	switch err.Category {
	case CategoryDrift:
		return 1 // Generated artifacts not checked in
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryNetwork, CategoryGit:
		return 8 // External system error
	case CategoryGenerator, CategoryRender, CategoryRewrite, CategoryFileSystem:
		return 11 // Generation error
	case CategoryWatch, CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 3 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	var dge *DocGateError
	if stderrors.As(err, &dge) {
		return a.formatDocGate(dge)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatDocGate formats a DocGateError for display.
func (a *CLIErrorAdapter) formatDocGate(err *DocGateError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryValidation, CategoryDrift:
		return err.Message
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	var dge *DocGateError
	if stderrors.As(err, &dge) {
		return dge.Category == CategoryInternal ||
			dge.Category == CategoryRuntime ||
			dge.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	var dge *DocGateError
	if stderrors.As(err, &dge) {
		level := a.slogLevelFromSeverity(dge.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(dge.Category)),
		}
		if dge.Retryable {
			attrs = append(attrs, slog.Bool("retryable", true))
		}

		a.logger.LogAttrs(context.Background(), level, dge.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts DocGateError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityFatal:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
