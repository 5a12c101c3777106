package pipeline

import (
	"errors"
	"fmt"

	dgerrors "git.home.luguber.info/inful/docgate/internal/errors"
	"git.home.luguber.info/inful/docgate/internal/linkcheck"
)

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageResult enumerates per-stage classification outcomes.
// Mirrors metrics.ResultLabel values to simplify emission.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
	StageResultSkipped  StageResult = "skipped"
)

// StageOutcome is the normalized result of stage execution.
type StageOutcome struct {
	Stage     StageName
	Error     *StageError
	Result    StageResult
	IssueCode ReportIssueCode
	Severity  IssueSeverity
	Abort     bool
}

// resultFromStageErrorKind maps a StageErrorKind to a StageResult.
func resultFromStageErrorKind(k StageErrorKind) StageResult {
	switch k {
	case StageErrorWarning:
		return StageResultWarning
	case StageErrorCanceled:
		return StageResultCanceled
	case StageErrorFatal:
		return StageResultFatal
	default:
		return StageResultFatal
	}
}

// severityFromStageErrorKind maps StageErrorKind to IssueSeverity.
func severityFromStageErrorKind(k StageErrorKind) IssueSeverity {
	if k == StageErrorWarning {
		return SeverityWarning
	}
	return SeverityError
}

// classifyStageResult converts a raw error from a stage into a StageOutcome.
func classifyStageResult(stage StageName, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: StageResultSuccess}
	}

	var se *StageError
	if !errors.As(err, &se) {
		se = newFatalStageError(stage, err)
		return buildFatalOutcome(stage, se)
	}

	// Cancellation applies to every stage; check it before stage-specific codes.
	if se.Kind == StageErrorCanceled {
		return buildCanceledOutcome(stage, se)
	}

	return StageOutcome{
		Stage:     stage,
		Error:     se,
		Result:    resultFromStageErrorKind(se.Kind),
		IssueCode: classifyIssueCode(se),
		Severity:  severityFromStageErrorKind(se.Kind),
		Abort:     se.Kind == StageErrorFatal,
	}
}

// classifyIssueCode determines the issue code based on stage type and error.
func classifyIssueCode(se *StageError) ReportIssueCode {
	switch se.Stage {
	case StageGenerateStubs:
		return IssueGeneratorFailure
	case StageRewriteStubs:
		return IssueRewriteFailure
	case StageRenderHTML:
		return IssueRenderFailure
	case StageVerifySources:
		if dgerrors.IsCategory(se.Err, dgerrors.CategoryDrift) {
			return IssueSourcesNotCheckedIn
		}
		return IssueGitFailure
	case StageVerifyPublished:
		if dgerrors.IsCategory(se.Err, dgerrors.CategoryDrift) {
			return IssuePublishedNotCheckedIn
		}
		return IssueGitFailure
	case StageRestoreVolatile:
		return IssueGitFailure
	case StageCheckLinks:
		if errors.Is(se.Err, linkcheck.ErrBrokenLinks) {
			return IssueBrokenLinks
		}
		return IssueGenericStageError
	default:
		return IssueGenericStageError
	}
}

// buildFatalOutcome creates an outcome for errors raised outside the
// StageError taxonomy.
func buildFatalOutcome(stage StageName, se *StageError) StageOutcome {
	return StageOutcome{
		Stage:     stage,
		Error:     se,
		Result:    StageResultFatal,
		IssueCode: IssueGenericStageError,
		Severity:  SeverityError,
		Abort:     true,
	}
}

// buildCanceledOutcome creates an outcome for canceled stages.
func buildCanceledOutcome(stage StageName, se *StageError) StageOutcome {
	return StageOutcome{
		Stage:     stage,
		Error:     se,
		Result:    StageResultCanceled,
		IssueCode: IssueRunCanceled,
		Severity:  SeverityError,
		Abort:     true,
	}
}

// Helper constructors.
func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}
