// Package pipeline orchestrates a documentation run as an ordered list of
// stages: wipe the managed directories, regenerate the API stubs, prune and
// promote them, apply the deterministic rewrites, gate the staged sources
// against the committed state, render the HTML site, and in CI mode gate the
// published tree as well. Stages execute sequentially and the run stops at
// the first fatal error; warnings are recorded on the report and execution
// continues.
package pipeline

import "context"

// Stage is a discrete unit of work in a documentation run.
type Stage func(ctx context.Context, rs *RunState) error

// StageName is a strongly-typed identifier for a run stage.
type StageName string

// Canonical stage names.
const (
	StageClean           StageName = "clean"
	StageGenerateStubs   StageName = "generate_stubs"
	StagePruneStubs      StageName = "prune_stubs"
	StagePromoteIndex    StageName = "promote_index"
	StageRewriteStubs    StageName = "rewrite_stubs"
	StageVerifySources   StageName = "verify_sources"
	StageRenderHTML      StageName = "render_html"
	StageRestoreVolatile StageName = "restore_volatile"
	StageVerifyPublished StageName = "verify_published"
	StageCheckLinks      StageName = "check_links"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 10)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a defensive copy of the stage definitions slice.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}
