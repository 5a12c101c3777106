package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docgate/internal/ci"
	"git.home.luguber.info/inful/docgate/internal/config"
	dgerrors "git.home.luguber.info/inful/docgate/internal/errors"
	"git.home.luguber.info/inful/docgate/internal/gitops"
	"git.home.luguber.info/inful/docgate/internal/logfields"
	"git.home.luguber.info/inful/docgate/internal/metrics"
	"git.home.luguber.info/inful/docgate/internal/rewrite"
	"git.home.luguber.info/inful/docgate/internal/sphinx"
)

// Trigger identifies what started a run.
type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerWatch    Trigger = "watch"
	TriggerSchedule Trigger = "schedule"
)

// Mode selects which stages a run executes.
type Mode string

const (
	ModeFull     Mode = "full"     // the whole sequence, publish gate in CI mode
	ModeGenerate Mode = "generate" // clean staging + regenerate + rewrite
	ModeVerify   Mode = "verify"   // generate + sources gate (+ site gates with Options.Site)
	ModeRender   Mode = "render"   // clean publish + render only
	ModeClean    Mode = "clean"    // wipe both managed directories
)

// Options parameterize a single run.
type Options struct {
	Mode    Mode        // default ModeFull
	Trigger Trigger     // default TriggerCLI
	CI      *ci.Context // non-nil switches on the published-output gate
	Site    bool        // ModeVerify: also render and gate the published tree
}

// Runner executes documentation runs against one repository. Construct with
// NewRunner, optionally swap collaborators with the Set methods, then call
// Run per invocation; a Runner is reusable across runs (watch mode runs it
// repeatedly).
type Runner struct {
	cfg       *config.Config
	repo      *gitops.Repo
	generator sphinx.Generator
	builder   sphinx.Builder
	rewrites  []rewrite.Step
	recorder  metrics.Recorder
	observer  RunObserver
}

// NewRunner opens the repository enclosing startDir and wires the default
// collaborators: the sphinx-apidoc generator, the sphinx-build renderer, and
// the configured rewrite steps.
func NewRunner(cfg *config.Config, startDir string) (*Runner, error) {
	repo, err := gitops.Open(startDir)
	if err != nil {
		return nil, dgerrors.GitOpenError(startDir, err)
	}
	return &Runner{
		cfg:       cfg,
		repo:      repo,
		generator: sphinx.NewAPIDocGenerator(cfg.Generator),
		builder:   sphinx.NewHTMLBuilder(cfg.Builder),
		rewrites:  rewrite.Steps(cfg, repo.Root()),
		recorder:  metrics.NoopRecorder{},
		observer:  NoopObserver{},
	}, nil
}

// Repo exposes the repository handle (read-only usage by callers needing
// HEAD or the worktree root).
func (r *Runner) Repo() *gitops.Repo { return r.repo }

// SetRecorder injects a metrics recorder (optional). Returns the runner for chaining.
func (r *Runner) SetRecorder(rec metrics.Recorder) *Runner {
	if rec == nil {
		r.recorder = metrics.NoopRecorder{}
		return r
	}
	r.recorder = rec
	return r
}

// SetObserver injects a run observer (optional). Returns the runner for chaining.
func (r *Runner) SetObserver(obs RunObserver) *Runner {
	if obs == nil {
		r.observer = NoopObserver{}
		return r
	}
	r.observer = obs
	return r
}

// SetGenerator swaps the stub generator (tests, skip-generation wiring).
func (r *Runner) SetGenerator(g sphinx.Generator) *Runner {
	if g != nil {
		r.generator = g
	}
	return r
}

// SetBuilder swaps the HTML builder.
func (r *Runner) SetBuilder(b sphinx.Builder) *Runner {
	if b != nil {
		r.builder = b
	}
	return r
}

// SetRewriteSteps replaces the rewrite step list.
func (r *Runner) SetRewriteSteps(steps []rewrite.Step) *Runner {
	r.rewrites = steps
	return r
}

// Run executes one documentation run and returns its report. The report is
// returned alongside the error so callers can record and display partial
// results from failed runs.
func (r *Runner) Run(ctx context.Context, opts Options) (*RunReport, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeFull
	}
	trigger := opts.Trigger
	if trigger == "" {
		trigger = TriggerCLI
	}

	ciName := ""
	if opts.CI != nil {
		ciName = opts.CI.Name
	}
	report := newRunReport(uuid.NewString(), trigger, opts.CI != nil, ciName)
	if head, err := r.repo.Head(); err == nil {
		report.Commit = head
	} else {
		// A repository without commits still supports generate/clean runs;
		// the gates will fail on their own later.
		slog.Debug("Could not resolve HEAD", logfields.Error(err))
	}

	root := r.repo.Root()
	rs := &RunState{
		Config:     r.cfg,
		Repo:       r.repo,
		Runner:     r,
		StagingDir: r.cfg.StagingDir(root),
		PublishDir: r.cfg.PublishDir(root),
		PackageDir: r.cfg.PackageDir(root),
		Report:     report,
	}

	stages, err := r.assemble(mode, opts, rs)
	if err != nil {
		return nil, err
	}

	slog.Info("Starting documentation run",
		logfields.RunID(report.RunID),
		logfields.Trigger(string(trigger)),
		logfields.CI(report.CI),
		slog.String("mode", string(mode)),
		logfields.Count(len(stages)))

	runErr := runStages(ctx, rs, stages)
	report.deriveOutcome()
	report.finish()
	r.observer.OnRunComplete(report)
	if err := report.Persist(r.cfg.DataDir(root)); err != nil {
		slog.Warn("Failed to persist run report", logfields.Error(err))
	}
	slog.Info("Documentation run finished",
		logfields.RunID(report.RunID),
		logfields.Outcome(report.Outcome),
		logfields.Count(report.StubCount),
		slog.Duration("duration", report.End.Sub(report.Start)))
	return report, runErr
}

// assemble builds the stage list for a mode and records which directories the
// clean stage may wipe. Modes that skip rendering must not touch the publish
// tree: wiping committed output without re-rendering would leave the
// worktree full of deletions.
func (r *Runner) assemble(mode Mode, opts Options, rs *RunState) ([]StageDef, error) {
	ciMode := opts.CI != nil
	switch mode {
	case ModeClean:
		rs.CleanTargets = []string{rs.StagingDir, rs.PublishDir}
		return NewPipeline().
			Add(StageClean, stageClean).
			Build(), nil
	case ModeGenerate:
		rs.CleanTargets = []string{rs.StagingDir}
		return NewPipeline().
			Add(StageClean, stageClean).
			Add(StageGenerateStubs, stageGenerateStubs).
			Add(StagePruneStubs, stagePruneStubs).
			Add(StagePromoteIndex, stagePromoteIndex).
			Add(StageRewriteStubs, stageRewriteStubs).
			Build(), nil
	case ModeVerify:
		rs.CleanTargets = []string{rs.StagingDir}
		if opts.Site {
			rs.CleanTargets = append(rs.CleanTargets, rs.PublishDir)
		}
		return NewPipeline().
			Add(StageClean, stageClean).
			Add(StageGenerateStubs, stageGenerateStubs).
			Add(StagePruneStubs, stagePruneStubs).
			Add(StagePromoteIndex, stagePromoteIndex).
			Add(StageRewriteStubs, stageRewriteStubs).
			Add(StageVerifySources, stageVerifySources).
			AddIf(opts.Site, StageRenderHTML, stageRenderHTML).
			AddIf(opts.Site, StageRestoreVolatile, stageRestoreVolatile).
			AddIf(opts.Site, StageVerifyPublished, stageVerifyPublished).
			Build(), nil
	case ModeRender:
		rs.CleanTargets = []string{rs.PublishDir}
		return NewPipeline().
			Add(StageClean, stageClean).
			Add(StageRenderHTML, stageRenderHTML).
			Build(), nil
	case ModeFull:
		rs.CleanTargets = []string{rs.StagingDir, rs.PublishDir}
		return NewPipeline().
			Add(StageClean, stageClean).
			Add(StageGenerateStubs, stageGenerateStubs).
			Add(StagePruneStubs, stagePruneStubs).
			Add(StagePromoteIndex, stagePromoteIndex).
			Add(StageRewriteStubs, stageRewriteStubs).
			Add(StageVerifySources, stageVerifySources).
			Add(StageRenderHTML, stageRenderHTML).
			AddIf(ciMode, StageRestoreVolatile, stageRestoreVolatile).
			AddIf(ciMode, StageVerifyPublished, stageVerifyPublished).
			AddIf(r.cfg.Links.Check, StageCheckLinks, stageCheckLinks).
			Build(), nil
	default:
		return nil, dgerrors.ValidationFailed("mode", fmt.Sprintf("unknown run mode %q", mode))
	}
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal or canceled outcome.
func runStages(ctx context.Context, rs *RunState, stages []StageDef) error {
	obs := rs.Runner.observer
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.Name, ctx.Err())
			rs.Report.StageErrorKinds[st.Name] = se.Kind
			rs.Report.AddIssue(IssueRunCanceled, st.Name, SeverityError, se.Error(), se)
			rs.Report.recordStageResult(st.Name, StageResultCanceled, rs.Runner.recorder)
			obs.OnStageComplete(st.Name, 0, StageResultCanceled)
			return se
		default:
		}
		obs.OnStageStart(st.Name)
		t0 := time.Now()
		err := st.Fn(ctx, rs)
		dur := time.Since(t0)
		rs.Report.StageDurations[string(st.Name)] = dur
		out := classifyStageResult(st.Name, err)
		if out.Error != nil {
			rs.Report.StageErrorKinds[st.Name] = out.Error.Kind
			rs.Report.AddIssue(out.IssueCode, out.Stage, out.Severity, out.Error.Error(), out.Error)
		}
		rs.Report.recordStageResult(st.Name, out.Result, rs.Runner.recorder)
		obs.OnStageComplete(st.Name, dur, out.Result)
		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", st.Name)
		}
	}
	return nil
}
