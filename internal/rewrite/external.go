package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docgate/internal/logfields"
)

// External runs a configured argv as a rewrite step with the staging tree as
// working directory. The original system shipped its rewriters as opaque
// scripts; the file-level contract here is the same: the target must exist,
// the command must exit zero, and its output must be deterministic.
type External struct {
	name   string
	argv   []string
	target string
}

// NewExternal builds an external rewrite step. target names the file the
// step operates on, relative to the staging tree.
func NewExternal(name string, argv []string, target string) *External {
	return &External{name: name, argv: argv, target: target}
}

func (s *External) Name() string { return s.name }

func (s *External) Apply(ctx context.Context, stagingDir string) error {
	if len(s.argv) == 0 {
		return fmt.Errorf("rewrite step %s: empty command", s.name)
	}
	if s.target != "" {
		if _, err := os.Stat(filepath.Join(stagingDir, s.target)); err != nil {
			return fmt.Errorf("rewrite target %s missing: %w", s.target, err)
		}
	}

	// #nosec G204 -- argv comes from validated configuration
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Dir = stagingDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking external rewrite", logfields.Command(s.argv[0]), logfields.Dir(stagingDir))

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		if output != "" {
			return fmt.Errorf("rewrite step %s failed: %w: %s", s.name, err, output)
		}
		return fmt.Errorf("rewrite step %s failed: %w", s.name, err)
	}
	return nil
}
