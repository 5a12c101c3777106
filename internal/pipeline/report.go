package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docgate/internal/metrics"
)

// RunOutcome is the typed enumeration of final run result states.
type RunOutcome string

const (
	OutcomeSuccess  RunOutcome = "success"
	OutcomeWarning  RunOutcome = "warning"
	OutcomeFailed   RunOutcome = "failed"
	OutcomeCanceled RunOutcome = "canceled"
)

// ReportIssueCode enumerates machine-parseable issue identifiers.
// These codes are stable contract and should only be appended (no reuse on removal).
type ReportIssueCode string

const (
	IssueGeneratorFailure      ReportIssueCode = "GENERATOR_FAILURE"
	IssueRenderFailure         ReportIssueCode = "RENDER_FAILURE"
	IssueSourcesNotCheckedIn   ReportIssueCode = "SOURCES_NOT_CHECKED_IN"
	IssuePublishedNotCheckedIn ReportIssueCode = "PUBLISHED_NOT_CHECKED_IN"
	IssueRewriteFailure        ReportIssueCode = "REWRITE_FAILURE"
	IssueGitFailure            ReportIssueCode = "GIT_FAILURE"
	IssueBrokenLinks           ReportIssueCode = "BROKEN_LINKS"
	IssueRunCanceled           ReportIssueCode = "RUN_CANCELED"
	IssueGenericStageError     ReportIssueCode = "GENERIC_STAGE_ERROR"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ReportIssue is a structured taxonomy entry describing a discrete problem
// encountered during a run. Message is human-friendly; Code + Stage allow
// automated handling.
type ReportIssue struct {
	Code     ReportIssueCode `json:"code"`
	Stage    StageName       `json:"stage"`
	Severity IssueSeverity   `json:"severity"`
	Message  string          `json:"message"`
}

// GateState records one checked-in gate evaluation.
type GateState struct {
	Checked bool     `json:"checked"`
	Clean   bool     `json:"clean"`
	Changed []string `json:"changed,omitempty"`
}

// GateStates groups the two gates a run can evaluate.
type GateStates struct {
	Sources   GateState `json:"sources"`
	Published GateState `json:"published"`
}

// StageCount aggregates counts of outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// RunReport captures metrics and gate results for one documentation run.
type RunReport struct {
	SchemaVersion   int // explicit schema version for forward-compatible consumers (serialized via RunReportSerializable)
	RunID           string
	Trigger         Trigger
	CI              bool
	CIName          string
	Commit          string // HEAD commit at run start; empty when unresolvable
	Start           time.Time
	End             time.Time
	StubCount       int // stub files present after generation
	LinksChecked    int
	BrokenLinks     int
	Errors          []error // fatal errors causing run abortion (at most one today)
	Warnings        []error // non-fatal issues recorded along the way
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind // stage -> error kind (fatal|warning|canceled)
	StageCounts     map[StageName]StageCount     // per-stage classification counts (typed keys; serialize as strings)
	Gates           GateStates
	Issues          []ReportIssue
	Outcome         string     // derived overall outcome (string form for JSON; use OutcomeT for typed)
	OutcomeT        RunOutcome // typed outcome mirror (source of truth)
}

func newRunReport(runID string, trigger Trigger, ciOn bool, ciName string) *RunReport {
	return &RunReport{
		SchemaVersion:   1,
		RunID:           runID,
		Trigger:         trigger,
		CI:              ciOn,
		CIName:          ciName,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		StageCounts:     make(map[StageName]StageCount),
	}
}

// AddIssue appends a structured issue and mirrors it into the Errors/Warnings
// slices based on severity. Provide err=nil for purely informational issues.
func (r *RunReport) AddIssue(code ReportIssueCode, stage StageName, severity IssueSeverity, msg string, err error) {
	r.Issues = append(r.Issues, ReportIssue{Code: code, Stage: stage, Severity: severity, Message: msg})
	if err != nil {
		switch severity {
		case SeverityError:
			r.Errors = append(r.Errors, err)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, err)
		}
	}
}

// recordStageResult updates RunReport counters and emits metrics (if recorder non-nil).
func (r *RunReport) recordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	sc := r.StageCounts[stage]
	switch res {
	case StageResultSuccess:
		sc.Success++
		if recorder != nil {
			recorder.IncStageResult(string(stage), metrics.ResultSuccess)
		}
	case StageResultWarning:
		sc.Warning++
		if recorder != nil {
			recorder.IncStageResult(string(stage), metrics.ResultWarning)
		}
	case StageResultFatal:
		sc.Fatal++
		if recorder != nil {
			recorder.IncStageResult(string(stage), metrics.ResultFatal)
		}
	case StageResultCanceled:
		sc.Canceled++
		if recorder != nil {
			recorder.IncStageResult(string(stage), metrics.ResultCanceled)
		}
	}
	r.StageCounts[stage] = sc
}

func (r *RunReport) finish() { r.End = time.Now() }

// Summary returns a human-readable single-line summary.
func (r *RunReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("run=%s trigger=%s ci=%t stubs=%d stages=%d errors=%d warnings=%d duration=%s outcome=%s",
		r.RunID, r.Trigger, r.CI, r.StubCount, len(r.StageDurations), len(r.Errors), len(r.Warnings), dur.Truncate(time.Millisecond), r.Outcome)
}

// deriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *RunReport) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			if se, ok := e.(*StageError); ok && se.Kind == StageErrorCanceled {
				r.setOutcome(OutcomeCanceled)
				return
			}
		}
		r.setOutcome(OutcomeFailed)
		return
	}
	if len(r.Warnings) > 0 {
		r.setOutcome(OutcomeWarning)
		return
	}
	r.setOutcome(OutcomeSuccess)
}

// setOutcome sets both typed and string forms.
func (r *RunReport) setOutcome(o RunOutcome) {
	r.OutcomeT = o
	r.Outcome = string(o)
}

// Persist writes the report atomically into the data directory (never into
// the staging or publish trees, which would dirty the gates). It writes two
// files:
//
//	last-run.json  (machine readable)
//	last-run.txt   (human summary)
//
// Best effort; errors are returned for caller logging but do not change the
// run outcome.
func (r *RunReport) Persist(dataDir string) error {
	if r.End.IsZero() { // ensure finished
		r.finish()
		r.deriveOutcome()
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("ensure data dir for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.sanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	jsonPath := filepath.Join(dataDir, "last-run.json")
	tmpJSON := jsonPath + ".tmp"
	if err := os.WriteFile(tmpJSON, jb, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmpJSON, jsonPath); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	summaryPath := filepath.Join(dataDir, "last-run.txt")
	tmpTxt := summaryPath + ".tmp"
	if err := os.WriteFile(tmpTxt, []byte(r.Summary()+"\n"), 0o600); err != nil {
		return fmt.Errorf("write temp report summary: %w", err)
	}
	if err := os.Rename(tmpTxt, summaryPath); err != nil {
		return fmt.Errorf("atomic rename summary: %w", err)
	}
	return nil
}

// Serializable returns the JSON-friendly form of the report, with error
// values flattened to strings. The history store and the CLI share this
// representation with Persist.
func (r *RunReport) Serializable() *RunReportSerializable { return r.sanitizedCopy() }

// sanitizedCopy returns a shallow copy with error fields converted to strings
// and typed map keys flattened for JSON stability.
func (r *RunReport) sanitizedCopy() *RunReportSerializable {
	stageCounts := make(map[string]StageCount, len(r.StageCounts))
	for k, v := range r.StageCounts {
		stageCounts[string(k)] = v
	}
	sek := make(map[string]string, len(r.StageErrorKinds))
	for k, v := range r.StageErrorKinds {
		sek[string(k)] = string(v)
	}
	if r.StageDurations == nil {
		r.StageDurations = map[string]time.Duration{}
	}

	s := &RunReportSerializable{
		SchemaVersion:   r.SchemaVersion,
		RunID:           r.RunID,
		Trigger:         string(r.Trigger),
		CI:              r.CI,
		CIName:          r.CIName,
		Commit:          r.Commit,
		Start:           r.Start,
		End:             r.End,
		StubCount:       r.StubCount,
		LinksChecked:    r.LinksChecked,
		BrokenLinks:     r.BrokenLinks,
		Errors:          make([]string, len(r.Errors)),
		Warnings:        make([]string, len(r.Warnings)),
		StageDurations:  r.StageDurations,
		StageErrorKinds: sek,
		StageCounts:     stageCounts,
		Gates:           r.Gates,
		Issues:          r.Issues,
		Outcome:         r.Outcome,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// RunReportSerializable mirrors RunReport but with string errors for JSON output.
type RunReportSerializable struct {
	SchemaVersion   int                      `json:"schema_version"`
	RunID           string                   `json:"run_id"`
	Trigger         string                   `json:"trigger"`
	CI              bool                     `json:"ci"`
	CIName          string                   `json:"ci_name,omitempty"`
	Commit          string                   `json:"commit,omitempty"`
	Start           time.Time                `json:"start"`
	End             time.Time                `json:"end"`
	StubCount       int                      `json:"stub_count"`
	LinksChecked    int                      `json:"links_checked"`
	BrokenLinks     int                      `json:"broken_links"`
	Errors          []string                 `json:"errors"`
	Warnings        []string                 `json:"warnings"`
	StageDurations  map[string]time.Duration `json:"stage_durations"`
	StageErrorKinds map[string]string        `json:"stage_error_kinds"`
	StageCounts     map[string]StageCount    `json:"stage_counts"`
	Gates           GateStates               `json:"gates"`
	Issues          []ReportIssue            `json:"issues"`
	Outcome         string                   `json:"outcome"`
}
