package main

import (
	"git.home.luguber.info/inful/docgate/cmd/docgate/commands"
	dgerrors "git.home.luguber.info/inful/docgate/internal/errors"
	"git.home.luguber.info/inful/docgate/internal/version"
	"github.com/alecthomas/kong"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("docgate"),
		kong.Description("Deterministic documentation generation with check-in gates."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{}); err != nil {
		// HandleError prints the user-facing message and exits with the
		// category-specific code (drift stays 1 for CI scripts).
		dgerrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
