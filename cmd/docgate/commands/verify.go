package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docgate/internal/pipeline"
)

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	Site bool `help:"Also render and gate the published HTML tree"`
}

func (v *VerifyCmd) Run(_ *Global, root *CLI) error {
	rt, err := newRuntime(root)
	if err != nil {
		return err
	}

	err = rt.execute(context.Background(), pipeline.Options{
		Mode:    pipeline.ModeVerify,
		Trigger: pipeline.TriggerCLI,
		Site:    v.Site,
	})
	if err != nil {
		return err
	}
	if v.Site {
		fmt.Println("Doc sources and published tree are up to date")
	} else {
		fmt.Println("Doc sources are up to date")
	}
	return nil
}
