package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docgate/internal/config"
	dgerrors "git.home.luguber.info/inful/docgate/internal/errors"
	"git.home.luguber.info/inful/docgate/internal/gitops"
	"git.home.luguber.info/inful/docgate/internal/linkcheck"
	"git.home.luguber.info/inful/docgate/internal/logfields"
	"git.home.luguber.info/inful/docgate/internal/metrics"
	"git.home.luguber.info/inful/docgate/internal/stubs"
)

// RunState carries everything stages need: the configuration snapshot, the
// repository handle, resolved absolute paths, and the report being built.
type RunState struct {
	Config *config.Config
	Repo   *gitops.Repo
	Runner *Runner

	StagingDir string // absolute staging tree ("docs_build")
	PublishDir string // absolute publish tree ("docs/latest")
	PackageDir string // absolute source package to document

	// CleanTargets is decided at assembly time; render-only runs wipe the
	// publish tree but must leave the staged sources alone.
	CleanTargets []string

	Stubs  []stubs.File // inventory after generate_stubs
	Report *RunReport
}

// stageClean wipes and recreates the managed directories. Absent directories
// are not an error; the stage is idempotent.
func stageClean(_ context.Context, rs *RunState) error {
	for _, dir := range rs.CleanTargets {
		if err := cleanDir(dir); err != nil {
			return newFatalStageError(StageClean, dgerrors.StagingError("clean", err))
		}
	}
	return nil
}

func cleanDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clean %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", dir, err)
	}
	slog.Debug("Cleaned directory", logfields.Dir(dir))
	return nil
}

// stageGenerateStubs runs the stub generator and inventories its output.
func stageGenerateStubs(ctx context.Context, rs *RunState) error {
	if err := rs.Runner.generator.Generate(ctx, rs.PackageDir, rs.StagingDir); err != nil {
		return newFatalStageError(StageGenerateStubs, dgerrors.GeneratorError(err))
	}
	inv, err := stubs.Inventory(rs.StagingDir)
	if err != nil {
		return newFatalStageError(StageGenerateStubs, dgerrors.StagingError("inventory", err))
	}
	rs.Stubs = inv
	rs.Report.StubCount = len(inv)
	slog.Debug("Generated stubs", logfields.Count(len(inv)))
	return nil
}

// stagePruneStubs removes the stubs the site never links to.
func stagePruneStubs(_ context.Context, rs *RunState) error {
	if err := stubs.Prune(rs.StagingDir, rs.Config.PruneList()); err != nil {
		return newFatalStageError(StagePruneStubs, dgerrors.StagingError("prune", err))
	}
	return nil
}

// stagePromoteIndex renames the package overview stub to index.rst.
func stagePromoteIndex(_ context.Context, rs *RunState) error {
	if err := stubs.Promote(rs.StagingDir, rs.Config.Stubs.IndexSource, stubs.IndexName); err != nil {
		return newFatalStageError(StagePromoteIndex, dgerrors.StagingError("promote", err))
	}
	return nil
}

// stageRewriteStubs applies the configured rewrite steps in order.
func stageRewriteStubs(ctx context.Context, rs *RunState) error {
	for _, step := range rs.Runner.rewrites {
		if err := step.Apply(ctx, rs.StagingDir); err != nil {
			return newFatalStageError(StageRewriteStubs,
				dgerrors.RewriteError(step.Name(), fmt.Errorf("%s rewriter: %w", step.Name(), err)))
		}
	}
	return nil
}

// stageVerifySources gates the staged sources against the committed state.
// Any changed or untracked path under the staging dir fails the run before
// HTML is rendered.
func stageVerifySources(_ context.Context, rs *RunState) error {
	rel, err := rs.Repo.RelPath(rs.StagingDir)
	if err != nil {
		return newFatalStageError(StageVerifySources, dgerrors.GitStatusError(err))
	}
	changed, err := rs.Repo.ChangedPaths(rel)
	if err != nil {
		return newFatalStageError(StageVerifySources, dgerrors.GitStatusError(err))
	}
	rs.Report.Gates.Sources = GateState{Checked: true, Clean: len(changed) == 0, Changed: changed}
	if len(changed) > 0 {
		slog.Error("Generated sources not checked in",
			logfields.Gate(string(metrics.GateSources)), logfields.Dir(rs.Config.Paths.Staging), logfields.Count(len(changed)))
		return newFatalStageError(StageVerifySources, dgerrors.SourcesDrift(rs.Config.Paths.Staging))
	}
	slog.Debug("Sources gate clean", logfields.Dir(rs.Config.Paths.Staging))
	return nil
}

// stageRenderHTML builds the site from the staged sources.
func stageRenderHTML(ctx context.Context, rs *RunState) error {
	if err := rs.Runner.builder.Build(ctx, rs.StagingDir, rs.PublishDir); err != nil {
		return newFatalStageError(StageRenderHTML, dgerrors.RenderError(err))
	}
	return nil
}

// stageRestoreVolatile resets build-metadata files the renderer always
// touches, so they never trip the published gate. A volatile file missing
// from the committed tree is fatal.
func stageRestoreVolatile(_ context.Context, rs *RunState) error {
	for _, name := range rs.Config.Volatile {
		rel, err := rs.Repo.RelPath(filepath.Join(rs.PublishDir, name))
		if err != nil {
			return newFatalStageError(StageRestoreVolatile, dgerrors.GitRestoreError(name, err))
		}
		if err := rs.Repo.RestoreFile(rel); err != nil {
			return newFatalStageError(StageRestoreVolatile, dgerrors.GitRestoreError(rel, err))
		}
	}
	return nil
}

// stageVerifyPublished gates the rendered tree against the committed state.
// Runs only in CI mode, after restore_volatile.
func stageVerifyPublished(_ context.Context, rs *RunState) error {
	rel, err := rs.Repo.RelPath(rs.PublishDir)
	if err != nil {
		return newFatalStageError(StageVerifyPublished, dgerrors.GitStatusError(err))
	}
	changed, err := rs.Repo.ChangedPaths(rel)
	if err != nil {
		return newFatalStageError(StageVerifyPublished, dgerrors.GitStatusError(err))
	}
	rs.Report.Gates.Published = GateState{Checked: true, Clean: len(changed) == 0, Changed: changed}
	if len(changed) > 0 {
		summary, serr := rs.Repo.StatusSummary(rel)
		if serr != nil {
			slog.Warn("Failed to render status summary", logfields.Error(serr))
		}
		slog.Error("Published site not checked in",
			logfields.Gate(string(metrics.GatePublished)), logfields.Dir(rs.Config.Paths.Publish), logfields.Count(len(changed)))
		return newFatalStageError(StageVerifyPublished, dgerrors.PublishedDrift(rs.Config.Paths.Publish, summary))
	}
	slog.Debug("Published gate clean", logfields.Dir(rs.Config.Paths.Publish))
	return nil
}

// stageCheckLinks verifies internal references in the rendered tree. Broken
// links warn by default and abort the run when links.strict is set.
func stageCheckLinks(ctx context.Context, rs *RunState) error {
	res, err := linkcheck.Check(ctx, rs.PublishDir)
	if err != nil {
		return newFatalStageError(StageCheckLinks, err)
	}
	rs.Report.LinksChecked = res.Refs
	rs.Report.BrokenLinks = len(res.Broken)
	if lerr := res.Err(); lerr != nil {
		if rs.Config.Links.Strict {
			return newFatalStageError(StageCheckLinks, lerr)
		}
		return newWarnStageError(StageCheckLinks, lerr)
	}
	return nil
}
