package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/history"
	"git.home.luguber.info/inful/docgate/internal/pipeline"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" default:"20" help:"Number of runs to show"`
	JSON  bool `help:"Emit the stored run reports as JSON"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return err
	}
	setupLogging(cfg, root.Verbose)

	runner, err := pipeline.NewRunner(cfg, ".")
	if err != nil {
		return err
	}

	dbPath := filepath.Join(cfg.DataDir(runner.Repo().Root()), history.FileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No recorded runs")
		return nil
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return fmt.Errorf("reading run history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	if h.JSON {
		reports := make([]json.RawMessage, 0, len(entries))
		for _, entry := range entries {
			reports = append(reports, entry.Report)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	fmt.Printf("%-8s  %-19s  %-8s  %-3s  %-8s  %5s  %9s  %s\n",
		"RUN", "STARTED", "TRIGGER", "CI", "OUTCOME", "STUBS", "DURATION", "COMMIT")
	for _, entry := range entries {
		ciCol := "no"
		if entry.CI {
			ciCol = "yes"
		}
		fmt.Printf("%-8s  %-19s  %-8s  %-3s  %-8s  %5d  %9s  %s\n",
			shorten(entry.RunID, 8),
			entry.Started.Format("2006-01-02 15:04:05"),
			entry.Trigger,
			ciCol,
			entry.Outcome,
			entry.Stubs,
			entry.Duration().String(),
			shorten(entry.Commit, 7))
		if entry.Error != "" {
			fmt.Printf("          %s\n", entry.Error)
		}
	}
	return nil
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
