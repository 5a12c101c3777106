package sphinx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/logfields"
	serrors "git.home.luguber.info/inful/docgate/internal/sphinx/errors"
)

// apidocOptionsEnv is the environment variable sphinx-apidoc reads for the
// per-module automodule option set.
const apidocOptionsEnv = "SPHINX_APIDOC_OPTIONS"

// defaultGeneratorCommand is used when the configuration leaves the command empty.
const defaultGeneratorCommand = "sphinx-apidoc"

// Generator abstracts how reStructuredText stubs are produced from the source
// package. This allows swapping out the external sphinx-apidoc binary
// (APIDocGenerator) with alternative strategies (e.g., no-op for tests)
// without changing stage orchestration.
//
// Contract: given a package directory, deterministically emit one stub file
// per discovered module into the staging directory. The adapter only checks
// the exit status and surfaces captured output; stub content is owned by the
// external tool.
type Generator interface {
	Generate(ctx context.Context, pkgDir, stagingDir string) error
}

// APIDocGenerator invokes the configured stub generator binary present on PATH.
type APIDocGenerator struct {
	cfg config.GeneratorConfig
}

// NewAPIDocGenerator returns a generator bound to the given tool configuration.
func NewAPIDocGenerator(cfg config.GeneratorConfig) *APIDocGenerator {
	return &APIDocGenerator{cfg: cfg}
}

func (g *APIDocGenerator) Generate(ctx context.Context, pkgDir, stagingDir string) error {
	command := g.cfg.Command
	if command == "" {
		command = defaultGeneratorCommand
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%w: %w", serrors.ErrGeneratorNotFound, err)
	}

	if stat, err := os.Stat(pkgDir); err != nil {
		slog.Error("Package directory missing before stub generation", logfields.Dir(pkgDir), logfields.Error(err))
		return fmt.Errorf("package directory not found: %w", err)
	} else if !stat.IsDir() {
		return fmt.Errorf("package path is not a directory: %s", pkgDir)
	}

	args := make([]string, 0, 6)
	if g.cfg.SeparateEnabled() {
		args = append(args, "--separate")
	}
	if g.cfg.ForceEnabled() {
		args = append(args, "--force")
	}
	args = append(args, "-o", stagingDir, pkgDir)

	// #nosec G204 -- command comes from validated configuration, args are controlled
	cmd := exec.CommandContext(ctx, command, args...)
	if len(g.cfg.Options) > 0 {
		cmd.Env = append(os.Environ(), apidocOptionsEnv+"="+strings.Join(g.cfg.Options, ","))
	}
	slog.Debug("Invoking stub generator", logfields.Command(command), logfields.Dir(stagingDir))

	output, err := runCaptured(cmd, command)
	if err != nil {
		if output != "" {
			return fmt.Errorf("%w: %w: %s", serrors.ErrGeneratorFailed, err, output)
		}
		return fmt.Errorf("%w: %w", serrors.ErrGeneratorFailed, err)
	}
	return nil
}

// NoopGenerator emits nothing; useful in tests or when stubs are maintained by hand.
type NoopGenerator struct{}

func (NoopGenerator) Generate(_ context.Context, _, stagingDir string) error {
	slog.Debug("NoopGenerator skipping stub generation", logfields.Dir(stagingDir))
	return nil
}
