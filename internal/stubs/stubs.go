// Package stubs manipulates the generated reStructuredText stub files inside
// the staging tree: enumerating them, pruning the redundant ones, and
// promoting one stub to the documentation index.
package stubs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docgate/internal/logfields"
)

// IndexName is the canonical index filename the promoted stub takes.
const IndexName = "index.rst"

// File describes one generated stub inside the staging tree.
type File struct {
	Name   string // filename, e.g. google.resumable_media.requests.rst
	Module string // dotted module path, e.g. google.resumable_media.requests
}

// Inventory enumerates the .rst stubs in the staging tree, sorted by name.
// Subdirectories and non-stub files are skipped.
func Inventory(stagingDir string) ([]File, error) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging directory: %w", err)
	}
	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rst") {
			continue
		}
		files = append(files, File{
			Name:   e.Name(),
			Module: strings.TrimSuffix(e.Name(), ".rst"),
		})
	}
	return files, nil
}

// Prune deletes the named stubs from the staging tree. Already-absent files
// are skipped so a re-run succeeds.
func Prune(stagingDir string, names []string) error {
	for _, name := range names {
		path := filepath.Join(stagingDir, name)
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Debug("Stub already pruned", logfields.File(name))
				continue
			}
			return fmt.Errorf("failed to prune stub %s: %w", name, err)
		}
		slog.Debug("Pruned stub", logfields.File(name))
	}
	return nil
}

// Promote renames the source stub to target, overwriting any existing target.
// When the source is absent but the target exists the promotion already
// happened and the call is a no-op; when both are absent there is nothing to
// promote and an error is returned.
func Promote(stagingDir, source, target string) error {
	src := filepath.Join(stagingDir, source)
	dst := filepath.Join(stagingDir, target)

	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, terr := os.Stat(dst); terr == nil {
				slog.Debug("Stub already promoted", logfields.File(target))
				return nil
			}
			return fmt.Errorf("stub %s not found and no %s present", source, target)
		}
		return fmt.Errorf("failed to stat stub %s: %w", source, err)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to promote %s to %s: %w", source, target, err)
	}
	slog.Debug("Promoted stub", logfields.File(source), "target", target)
	return nil
}
