package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docgate/internal/pipeline"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	rt, err := newRuntime(root)
	if err != nil {
		return err
	}

	err = rt.execute(context.Background(), pipeline.Options{
		Mode:    pipeline.ModeClean,
		Trigger: pipeline.TriggerCLI,
	})
	if err != nil {
		return err
	}
	fmt.Println("Managed directories removed")
	return nil
}
