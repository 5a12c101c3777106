package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"git.home.luguber.info/inful/docgate/internal/linkcheck"
)

// LinkcheckCmd implements the 'linkcheck' command. It walks the published
// HTML tree as it exists on disk; it does not rerun the pipeline.
type LinkcheckCmd struct {
	Strict bool `help:"Exit non-zero when broken links are found"`
	JSON   bool `help:"Emit the result as JSON"`
}

func (l *LinkcheckCmd) Run(_ *Global, root *CLI) error {
	rt, err := newRuntime(root)
	if err != nil {
		return err
	}

	publishDir := rt.cfg.PublishDir(rt.runner.Repo().Root())
	result, err := linkcheck.Check(context.Background(), publishDir)
	if err != nil {
		return err
	}

	if l.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	} else {
		for _, broken := range result.Broken {
			fmt.Println(broken.String())
		}
		fmt.Printf("Checked %d pages, %d references, %d broken\n",
			result.Pages, result.Refs, len(result.Broken))
	}

	if resErr := result.Err(); resErr != nil && (l.Strict || rt.cfg.Links.Strict) {
		return resErr
	}
	return nil
}
