package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docgate/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	CIName string `arg:"" optional:"" name:"ci-name" help:"CI system identifier; a recognized name switches on the published-output gate"`
	CI     bool   `help:"Force CI mode regardless of environment"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	rt, err := newRuntime(root)
	if err != nil {
		return err
	}

	ciCtx := detectCI(rt.cfg, b.CIName, b.CI)
	if b.CIName != "" && ciCtx == nil {
		fmt.Printf("Ignoring unrecognized CI identifier %q\n", b.CIName)
	}

	err = rt.execute(context.Background(), pipeline.Options{
		Mode:    pipeline.ModeFull,
		Trigger: pipeline.TriggerCLI,
		CI:      ciCtx,
	})
	if err != nil {
		return err
	}
	fmt.Println("Documentation build completed successfully")
	return nil
}
