package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docgate/internal/pipeline"
)

// GenerateCmd implements the 'generate' command. It regenerates and rewrites
// the staged doc sources without running any gate, which is the loop used
// when updating the checked-in stubs.
type GenerateCmd struct{}

func (g *GenerateCmd) Run(_ *Global, root *CLI) error {
	rt, err := newRuntime(root)
	if err != nil {
		return err
	}

	err = rt.execute(context.Background(), pipeline.Options{
		Mode:    pipeline.ModeGenerate,
		Trigger: pipeline.TriggerCLI,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Doc sources regenerated under %s\n", rt.cfg.StagingDir(rt.runner.Repo().Root()))
	return nil
}
