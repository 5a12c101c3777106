package pipeline

import (
	"time"

	"git.home.luguber.info/inful/docgate/internal/metrics"
)

// RunObserver receives callbacks around stage execution and run lifecycle.
// It intentionally abstracts away the metrics.Recorder so future observers
// (logging, tracing, notifications) can hook in without changing stage code.
type RunObserver interface {
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult)
	OnRunComplete(report *RunReport)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(_ StageName)                                    {}
func (NoopObserver) OnStageComplete(_ StageName, _ time.Duration, _ StageResult) {}
func (NoopObserver) OnRunComplete(_ *RunReport)                                  {}

// RecorderObserver adapts metrics.Recorder into a RunObserver. Stage result
// counters are emitted directly by recordStageResult; this observer covers
// the duration histograms, outcome and gate counters, and the issue taxonomy.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(_ StageName) {}

func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, _ StageResult) {
	if r.Recorder != nil {
		r.Recorder.ObserveStageDuration(string(stage), d)
	}
}

func (r RecorderObserver) OnRunComplete(report *RunReport) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveRunDuration(report.End.Sub(report.Start))
	r.Recorder.IncRunOutcome(metrics.RunOutcomeLabel(report.Outcome))
	if report.Gates.Sources.Checked {
		r.Recorder.IncGateResult(metrics.GateSources, report.Gates.Sources.Clean)
	}
	if report.Gates.Published.Checked {
		r.Recorder.IncGateResult(metrics.GatePublished, report.Gates.Published.Clean)
	}
	for _, is := range report.Issues {
		r.Recorder.IncIssue(string(is.Code), string(is.Stage), string(is.Severity))
	}
}
