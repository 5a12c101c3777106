// Package rewrite post-processes generated stubs in the staging tree. Every
// step is deterministic and idempotent: applied twice it produces
// byte-identical output. The checked-in-diff gate depends on that, otherwise
// regenerating docs over committed ones would always show drift.
package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/stubs"
)

// Step is one in-place rewrite applied to files in the staging tree.
type Step interface {
	Name() string
	Apply(ctx context.Context, stagingDir string) error
}

// Steps assembles the configured rewrite steps in application order.
// External argv commands take precedence over the native rewriters, keeping
// the original contract of opaque rewrite scripts available.
func Steps(cfg *config.Config, root string) []Step {
	steps := make([]Step, 0, 2)
	if len(cfg.Rewrite.IndexCommand) > 0 {
		steps = append(steps, NewExternal("index", cfg.Rewrite.IndexCommand, stubs.IndexName))
	} else {
		steps = append(steps, NewIndex(cfg, root))
	}
	if len(cfg.Rewrite.PackageCommand) > 0 {
		steps = append(steps, NewExternal("package", cfg.Rewrite.PackageCommand, cfg.Stubs.PackageStub))
	} else {
		steps = append(steps, NewPackageStub(cfg))
	}
	return steps
}

// applyInPlace reads path, applies transform, and writes the result back
// preserving the file mode. Converged output skips the write so timestamps
// stay put on re-runs.
func applyInPlace(path string, transform func([]byte) ([]byte, error)) error {
	// #nosec G304 -- path is derived from the configured staging tree
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read stub for rewrite: %w", err)
	}

	updated, err := transform(data)
	if err != nil {
		return err
	}
	if bytes.Equal(data, updated) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat stub for rewrite: %w", err)
	}
	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write rewritten stub: %w", err)
	}
	return nil
}
