package sphinx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/logfields"
	serrors "git.home.luguber.info/inful/docgate/internal/sphinx/errors"
)

// defaultBuilderCommand is used when the configuration leaves the command empty.
const defaultBuilderCommand = "sphinx-build"

// Builder abstracts how the staging tree is rendered into the published
// directory. In strict mode the external compiler must exit non-zero on any
// warning; that exit status is the only signal the pipeline relies on.
type Builder interface {
	Build(ctx context.Context, stagingDir, outDir string) error
}

// HTMLBuilder invokes the configured documentation compiler binary present on PATH.
type HTMLBuilder struct {
	cfg config.BuilderConfig
}

// NewHTMLBuilder returns a builder bound to the given tool configuration.
func NewHTMLBuilder(cfg config.BuilderConfig) *HTMLBuilder {
	return &HTMLBuilder{cfg: cfg}
}

func (b *HTMLBuilder) Build(ctx context.Context, stagingDir, outDir string) error {
	command := b.cfg.Command
	if command == "" {
		command = defaultBuilderCommand
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%w: %w", serrors.ErrBuilderNotFound, err)
	}

	if stat, err := os.Stat(stagingDir); err != nil {
		slog.Error("Staging directory missing before render", logfields.Dir(stagingDir), logfields.Error(err))
		return fmt.Errorf("staging directory not found: %w", err)
	} else if !stat.IsDir() {
		return fmt.Errorf("staging path is not a directory: %s", stagingDir)
	}

	format := b.cfg.Format
	if format == "" {
		format = "html"
	}
	args := make([]string, 0, 10)
	if b.cfg.StrictEnabled() {
		// -W turns every warning fatal; the checked-in-diff gate depends on it.
		args = append(args, "-W")
	}
	args = append(args, "-T", "-N", "-b", format, "-d", b.cfg.DoctreesDir(stagingDir), stagingDir, outDir)

	// #nosec G204 -- command comes from validated configuration, args are controlled
	cmd := exec.CommandContext(ctx, command, args...)
	slog.Debug("Invoking doc builder", logfields.Command(command), logfields.Dir(outDir))

	output, err := runCaptured(cmd, command)
	if err != nil {
		if output != "" {
			return fmt.Errorf("%w: %w: %s", serrors.ErrBuildFailed, err, output)
		}
		return fmt.Errorf("%w: %w", serrors.ErrBuildFailed, err)
	}

	if _, err := os.Stat(outDir); err != nil {
		slog.Error("Published directory missing after render", logfields.Dir(outDir), logfields.Error(err))
		return fmt.Errorf("published directory missing after render: %w", err)
	}
	return nil
}

// NoopBuilder performs no rendering; useful in tests or verify-only runs.
type NoopBuilder struct{}

func (NoopBuilder) Build(_ context.Context, _, outDir string) error {
	slog.Debug("NoopBuilder skipping render", logfields.Dir(outDir))
	return nil
}
