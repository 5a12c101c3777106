package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docgate/internal/pipeline"
	"git.home.luguber.info/inful/docgate/internal/sphinx"
)

// RenderCmd implements the 'render' command. Rendering reads the staged
// sources as they are on disk; run 'generate' first when stubs changed.
type RenderCmd struct {
	NoStrict bool `name:"no-strict" help:"Allow renderer warnings instead of failing on them"`
}

func (r *RenderCmd) Run(_ *Global, root *CLI) error {
	rt, err := newRuntime(root)
	if err != nil {
		return err
	}

	if r.NoStrict {
		lax := false
		rt.cfg.Builder.Strict = &lax
		// The runner captured the builder config at construction; rebuild it.
		rt.runner.SetBuilder(sphinx.NewHTMLBuilder(rt.cfg.Builder))
	}

	err = rt.execute(context.Background(), pipeline.Options{
		Mode:    pipeline.ModeRender,
		Trigger: pipeline.TriggerCLI,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Rendered HTML into %s\n", rt.cfg.PublishDir(rt.runner.Repo().Root()))
	return nil
}
