package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docgate/internal/ci"
	"git.home.luguber.info/inful/docgate/internal/config"
	dgerrors "git.home.luguber.info/inful/docgate/internal/errors"
	"git.home.luguber.info/inful/docgate/internal/metrics"
)

// Raw stub trees the way sphinx-apidoc would emit them. The fake generator
// replays these into the staging dir so the native rewriters see realistic
// input.
const rawIndexStub = `google.resumable\_media package
===============================

.. automodule:: google.resumable_media
   :members:
   :inherited-members:
   :show-inheritance:

Subpackages
-----------

.. toctree::
   :maxdepth: 4

   google.resumable_media.requests
`

const rawRequestsStub = `google.resumable\_media.requests package
========================================

.. automodule:: google.resumable_media.requests
   :members:
   :inherited-members:
   :show-inheritance:
`

func defaultStubSet() map[string]string {
	return map[string]string{
		"modules.rst":                         "google\n======\n\n.. toctree::\n   :maxdepth: 4\n\n   google\n",
		"google.rst":                          "google package\n==============\n",
		"google.resumable_media.rst":          rawIndexStub,
		"google.resumable_media.requests.rst": rawRequestsStub,
	}
}

type fakeGenerator struct {
	files map[string]string
	calls int
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, _, stagingDir string) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(stagingDir, name), []byte(content), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// fakeBuilder renders a fixed page set plus a .buildinfo whose content
// changes every call, mimicking the volatile metadata a real renderer
// touches on each run.
type fakeBuilder struct {
	calls int
	err   error
	pages map[string]string
}

func (f *fakeBuilder) Build(_ context.Context, _, outDir string) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}
	files := map[string]string{
		"index.html": "<html><body>docs</body></html>",
		".buildinfo": fmt.Sprintf("# build signature %d\n", f.calls),
	}
	for name, content := range f.pages {
		files[name] = content
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(content), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func commitAll(t *testing.T, root string) {
	t.Helper()
	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	_, err = wt.Commit("commit generated docs", &git.CommitOptions{
		Author: &object.Signature{Name: "Tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func newTestRunner(t *testing.T, root string) (*Runner, *fakeGenerator, *fakeBuilder) {
	t.Helper()
	gen := &fakeGenerator{files: defaultStubSet()}
	bld := &fakeBuilder{}
	r, err := NewRunner(config.Default(), root)
	require.NoError(t, err)
	r.SetGenerator(gen).SetBuilder(bld)
	return r, gen, bld
}

// seedCommitted runs generate + render once and commits the result, leaving
// a repository where regeneration reproduces the committed state exactly.
func seedCommitted(t *testing.T, r *Runner) {
	t.Helper()
	ctx := context.Background()
	_, err := r.Run(ctx, Options{Mode: ModeGenerate})
	require.NoError(t, err)
	_, err = r.Run(ctx, Options{Mode: ModeRender})
	require.NoError(t, err)
	commitAll(t, r.Repo().Root())
}

func TestRunner_GenerateMode(t *testing.T) {
	root := initRepo(t)
	r, gen, bld := newTestRunner(t, root)

	report, err := r.Run(context.Background(), Options{Mode: ModeGenerate})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.OutcomeT)
	require.Equal(t, 1, gen.calls)
	require.Zero(t, bld.calls, "generate mode must not render")
	require.Equal(t, 4, report.StubCount)
	require.False(t, report.Gates.Sources.Checked)

	staging := filepath.Join(root, "docs_build")
	require.NoFileExists(t, filepath.Join(staging, "modules.rst"))
	require.NoFileExists(t, filepath.Join(staging, "google.rst"))
	require.NoFileExists(t, filepath.Join(staging, "google.resumable_media.rst"))

	index, rerr := os.ReadFile(filepath.Join(staging, "index.rst"))
	require.NoError(t, rerr)
	lines := strings.Split(string(index), "\n")
	require.Equal(t, "google", lines[0], "index title replaced with the project title")
	require.Equal(t, "======", lines[1])
	require.Contains(t, string(index), "   google.resumable_media.requests")

	requests, rerr := os.ReadFile(filepath.Join(staging, "google.resumable_media.requests.rst"))
	require.NoError(t, rerr)
	require.NotContains(t, string(requests), ":inherited-members:")
	require.True(t, strings.HasPrefix(string(requests), "requests package\n"))

	for _, stage := range []StageName{StageClean, StageGenerateStubs, StagePruneStubs, StagePromoteIndex, StageRewriteStubs} {
		require.Contains(t, report.StageDurations, string(stage))
	}
	require.NotContains(t, report.StageDurations, string(StageRenderHTML))
}

func TestRunner_FullRun_CleanGatesInCI(t *testing.T) {
	root := initRepo(t)
	r, _, bld := newTestRunner(t, root)
	seedCommitted(t, r)

	report, err := r.Run(context.Background(), Options{
		Mode: ModeFull,
		CI:   &ci.Context{Name: "kokoro", Source: ci.SourceArg},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.OutcomeT)
	require.True(t, report.CI)
	require.Equal(t, "kokoro", report.CIName)
	require.Len(t, report.Commit, 40)
	require.Empty(t, report.Issues)

	require.True(t, report.Gates.Sources.Checked)
	require.True(t, report.Gates.Sources.Clean)
	require.True(t, report.Gates.Published.Checked)
	require.True(t, report.Gates.Published.Clean)

	// The renderer rewrote .buildinfo on the second call; only the
	// restore_volatile stage keeps the published gate clean.
	require.Equal(t, 2, bld.calls)
	data, rerr := os.ReadFile(filepath.Join(root, "docs", "latest", ".buildinfo"))
	require.NoError(t, rerr)
	require.Equal(t, "# build signature 1\n", string(data))

	for _, stage := range []StageName{StageVerifySources, StageRenderHTML, StageRestoreVolatile, StageVerifyPublished} {
		require.Contains(t, report.StageDurations, string(stage))
	}
}

func TestRunner_PublishGateSkippedOutsideCI(t *testing.T) {
	root := initRepo(t)
	r, _, _ := newTestRunner(t, root)
	seedCommitted(t, r)

	report, err := r.Run(context.Background(), Options{Mode: ModeFull})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.OutcomeT)
	require.Contains(t, report.StageDurations, string(StageVerifySources))
	require.Contains(t, report.StageDurations, string(StageRenderHTML))
	require.NotContains(t, report.StageDurations, string(StageRestoreVolatile))
	require.NotContains(t, report.StageDurations, string(StageVerifyPublished))
	require.False(t, report.Gates.Published.Checked)
}

func TestRunner_SourcesGateFailsOnDrift(t *testing.T) {
	root := initRepo(t)
	r, gen, _ := newTestRunner(t, root)
	seedCommitted(t, r)

	// The package grew a module; regeneration now emits a stub that was
	// never committed.
	gen.files["google.resumable_media.common.rst"] = "google.resumable\\_media.common module\n=====================================\n"

	report, err := r.Run(context.Background(), Options{Mode: ModeFull})
	require.Error(t, err)
	require.True(t, dgerrors.IsCategory(err, dgerrors.CategoryDrift))
	require.Equal(t, OutcomeFailed, report.OutcomeT)

	require.True(t, report.Gates.Sources.Checked)
	require.False(t, report.Gates.Sources.Clean)
	require.Contains(t, report.Gates.Sources.Changed, "docs_build/google.resumable_media.common.rst")

	require.NotContains(t, report.StageDurations, string(StageRenderHTML), "no render after a failed gate")
	require.Equal(t, StageErrorFatal, report.StageErrorKinds[StageVerifySources])

	require.Len(t, report.Issues, 1)
	require.Equal(t, IssueSourcesNotCheckedIn, report.Issues[0].Code)
	require.Contains(t, err.Error(), "check in")
}

func TestRunner_PublishedGateFailsOnDrift(t *testing.T) {
	root := initRepo(t)
	r, _, _ := newTestRunner(t, root)
	seedCommitted(t, r)

	// Swap in a renderer that emits a page the committed tree lacks.
	r.SetBuilder(&fakeBuilder{pages: map[string]string{"extra.html": "<html>new</html>"}})

	report, err := r.Run(context.Background(), Options{
		Mode: ModeFull,
		CI:   &ci.Context{Name: "CIRCLECI", Source: ci.SourceEnv},
	})
	require.Error(t, err)
	require.True(t, dgerrors.IsCategory(err, dgerrors.CategoryDrift))
	require.Contains(t, err.Error(), "?? docs/latest/extra.html")
	require.Equal(t, OutcomeFailed, report.OutcomeT)

	require.True(t, report.Gates.Sources.Clean)
	require.True(t, report.Gates.Published.Checked)
	require.False(t, report.Gates.Published.Clean)
	require.Contains(t, report.Gates.Published.Changed, "docs/latest/extra.html")

	require.Len(t, report.Issues, 1)
	require.Equal(t, IssuePublishedNotCheckedIn, report.Issues[0].Code)
}

func TestRunner_VerifyMode(t *testing.T) {
	root := initRepo(t)
	r, _, bld := newTestRunner(t, root)
	seedCommitted(t, r)

	report, err := r.Run(context.Background(), Options{Mode: ModeVerify})
	require.NoError(t, err)
	require.True(t, report.Gates.Sources.Checked)
	require.False(t, report.Gates.Published.Checked)
	require.Equal(t, 1, bld.calls, "verify without --site must not render")

	report, err = r.Run(context.Background(), Options{Mode: ModeVerify, Site: true})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.OutcomeT)
	require.True(t, report.Gates.Published.Checked)
	require.True(t, report.Gates.Published.Clean)
	require.Equal(t, 2, bld.calls)
}

func TestRunner_GeneratorFailureAborts(t *testing.T) {
	root := initRepo(t)
	r, gen, _ := newTestRunner(t, root)
	gen.err = fmt.Errorf("stub generation failed: exit status 2")

	report, err := r.Run(context.Background(), Options{Mode: ModeGenerate})
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, report.OutcomeT)
	require.Equal(t, StageErrorFatal, report.StageErrorKinds[StageGenerateStubs])
	require.NotContains(t, report.StageDurations, string(StagePruneStubs))
	require.Len(t, report.Issues, 1)
	require.Equal(t, IssueGeneratorFailure, report.Issues[0].Code)
}

func TestRunner_CleanMode(t *testing.T) {
	root := initRepo(t)
	r, gen, bld := newTestRunner(t, root)

	staging := filepath.Join(root, "docs_build")
	require.NoError(t, os.MkdirAll(staging, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "stale.rst"), []byte("stale"), 0o600))

	report, err := r.Run(context.Background(), Options{Mode: ModeClean})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.OutcomeT)
	require.Zero(t, gen.calls)
	require.Zero(t, bld.calls)

	entries, rerr := os.ReadDir(staging)
	require.NoError(t, rerr)
	require.Empty(t, entries)
	require.DirExists(t, filepath.Join(root, "docs", "latest"))

	// Absent directories are recreated without error.
	require.NoError(t, os.RemoveAll(staging))
	_, err = r.Run(context.Background(), Options{Mode: ModeClean})
	require.NoError(t, err)
	require.DirExists(t, staging)
}

func TestRunner_RenderModeLeavesStagingAlone(t *testing.T) {
	root := initRepo(t)
	r, _, bld := newTestRunner(t, root)

	_, err := r.Run(context.Background(), Options{Mode: ModeGenerate})
	require.NoError(t, err)

	report, err := r.Run(context.Background(), Options{Mode: ModeRender})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.OutcomeT)
	require.Equal(t, 1, bld.calls)
	require.FileExists(t, filepath.Join(root, "docs_build", "index.rst"))
	require.FileExists(t, filepath.Join(root, "docs", "latest", "index.html"))
}

func TestRunner_Canceled(t *testing.T) {
	root := initRepo(t)
	r, gen, _ := newTestRunner(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx, Options{Mode: ModeGenerate})
	require.Error(t, err)
	require.Contains(t, err.Error(), "canceled")
	require.Equal(t, OutcomeCanceled, report.OutcomeT)
	require.Zero(t, gen.calls)
	require.Len(t, report.Issues, 1)
	require.Equal(t, IssueRunCanceled, report.Issues[0].Code)
}

func TestRunner_UnknownMode(t *testing.T) {
	root := initRepo(t)
	r, _, _ := newTestRunner(t, root)

	_, err := r.Run(context.Background(), Options{Mode: Mode("bogus")})
	require.Error(t, err)
	require.True(t, dgerrors.IsCategory(err, dgerrors.CategoryValidation))
}

func TestRunner_BrokenLinksWarnThenStrict(t *testing.T) {
	root := initRepo(t)
	cfg := config.Default()
	cfg.Links.Check = true
	gen := &fakeGenerator{files: defaultStubSet()}
	bld := &fakeBuilder{pages: map[string]string{
		"index.html": `<html><body><a href="missing.html">gone</a></body></html>`,
	}}
	r, err := NewRunner(cfg, root)
	require.NoError(t, err)
	r.SetGenerator(gen).SetBuilder(bld)
	seedCommitted(t, r)

	report, err := r.Run(context.Background(), Options{Mode: ModeFull})
	require.NoError(t, err, "broken links warn by default")
	require.Equal(t, OutcomeWarning, report.OutcomeT)
	require.Equal(t, 1, report.BrokenLinks)
	require.Len(t, report.Issues, 1)
	require.Equal(t, IssueBrokenLinks, report.Issues[0].Code)
	require.Equal(t, SeverityWarning, report.Issues[0].Severity)

	cfg.Links.Strict = true
	report, err = r.Run(context.Background(), Options{Mode: ModeFull})
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, report.OutcomeT)
	require.Equal(t, StageErrorFatal, report.StageErrorKinds[StageCheckLinks])
}

func TestRunner_PersistsReportToDataDir(t *testing.T) {
	root := initRepo(t)
	r, _, _ := newTestRunner(t, root)

	report, err := r.Run(context.Background(), Options{Mode: ModeGenerate})
	require.NoError(t, err)

	data, rerr := os.ReadFile(filepath.Join(root, ".docgate", "last-run.json"))
	require.NoError(t, rerr)
	require.Contains(t, string(data), report.RunID)
	require.Contains(t, string(data), `"outcome": "success"`)

	txt, rerr := os.ReadFile(filepath.Join(root, ".docgate", "last-run.txt"))
	require.NoError(t, rerr)
	require.Equal(t, report.Summary()+"\n", string(txt))
}

type capturingRecorder struct {
	stageDur map[string]int
	runDur   int
	results  map[string]map[metrics.ResultLabel]int
	outcomes map[metrics.RunOutcomeLabel]int
	gates    map[metrics.GateLabel]map[bool]int
	issues   map[string]int
}

func newCapturingRecorder() *capturingRecorder {
	return &capturingRecorder{
		stageDur: map[string]int{},
		results:  map[string]map[metrics.ResultLabel]int{},
		outcomes: map[metrics.RunOutcomeLabel]int{},
		gates:    map[metrics.GateLabel]map[bool]int{},
		issues:   map[string]int{},
	}
}

func (c *capturingRecorder) ObserveStageDuration(stage string, _ time.Duration) { c.stageDur[stage]++ }
func (c *capturingRecorder) ObserveRunDuration(_ time.Duration)                 { c.runDur++ }
func (c *capturingRecorder) IncStageResult(stage string, r metrics.ResultLabel) {
	m, ok := c.results[stage]
	if !ok {
		m = map[metrics.ResultLabel]int{}
		c.results[stage] = m
	}
	m[r]++
}
func (c *capturingRecorder) IncRunOutcome(o metrics.RunOutcomeLabel) { c.outcomes[o]++ }
func (c *capturingRecorder) IncGateResult(g metrics.GateLabel, clean bool) {
	m, ok := c.gates[g]
	if !ok {
		m = map[bool]int{}
		c.gates[g] = m
	}
	m[clean]++
}
func (c *capturingRecorder) IncIssue(code, _, _ string) { c.issues[code]++ }

func TestRunner_MetricsRecorderIntegration(t *testing.T) {
	root := initRepo(t)
	r, _, _ := newTestRunner(t, root)
	seedCommitted(t, r)

	rec := newCapturingRecorder()
	r.SetRecorder(rec).SetObserver(RecorderObserver{Recorder: rec})

	_, err := r.Run(context.Background(), Options{
		Mode: ModeFull,
		CI:   &ci.Context{Name: "kokoro", Source: ci.SourceArg},
	})
	require.NoError(t, err)

	require.Equal(t, 1, rec.runDur)
	require.Equal(t, 1, rec.outcomes[metrics.RunOutcomeLabel(OutcomeSuccess)])
	require.Equal(t, 1, rec.gates[metrics.GateSources][true])
	require.Equal(t, 1, rec.gates[metrics.GatePublished][true])
	require.Equal(t, 1, rec.stageDur[string(StageRenderHTML)])
	require.Equal(t, 1, rec.results[string(StageVerifySources)][metrics.ResultSuccess])
	require.Empty(t, rec.issues)
}
