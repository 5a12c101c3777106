package pipeline

import (
	"context"
	"testing"
)

func noopStage(_ context.Context, _ *RunState) error { return nil }

func TestPipelineBuilder(t *testing.T) {
	defs := NewPipeline().
		Add(StageClean, noopStage).
		AddIf(false, StageRenderHTML, noopStage).
		AddIf(true, StageCheckLinks, noopStage).
		Build()

	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Name != StageClean {
		t.Errorf("defs[0].Name = %q, want %q", defs[0].Name, StageClean)
	}
	if defs[1].Name != StageCheckLinks {
		t.Errorf("defs[1].Name = %q, want %q", defs[1].Name, StageCheckLinks)
	}
}

func TestPipelineBuildCopies(t *testing.T) {
	p := NewPipeline().Add(StageClean, noopStage)
	first := p.Build()

	p.Add(StageRenderHTML, noopStage)
	if len(first) != 1 {
		t.Errorf("earlier Build result grew to %d defs", len(first))
	}

	first[0].Name = "mutated"
	if p.Defs[0].Name != StageClean {
		t.Errorf("mutating the built slice leaked into the builder: %q", p.Defs[0].Name)
	}
}
