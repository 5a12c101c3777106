// Package gitops wraps the version-control operations the pipeline gates on:
// worktree status restricted to a directory prefix, restoring volatile files
// to their committed state, and identifying the current commit.
package gitops

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docgate/internal/logfields"
	"github.com/go-git/go-git/v5"
)

// Repo wraps a version-controlled working tree enclosing the directories
// docgate manages.
type Repo struct {
	repo *git.Repository
	root string
}

// Open locates the repository enclosing path, walking up to find the .git
// directory the same way the git CLI does.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	root := worktree.Filesystem.Root()
	slog.Debug("Opened repository", logfields.Path(root))

	return &Repo{repo: repo, root: root}, nil
}

// Root returns the absolute worktree root.
func (r *Repo) Root() string {
	return r.root
}

// RelPath converts an absolute path into the slash-separated worktree-relative
// form used by status entries.
func (r *Repo) RelPath(abs string) (string, error) {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", fmt.Errorf("path %s is outside worktree %s: %w", abs, r.root, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside worktree %s", abs, r.root)
	}
	return rel, nil
}

// Head returns the current commit hash.
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// ChangedPaths returns all worktree paths under prefix that differ from the
// committed state. Staged and unstaged modifications, deletions, and
// untracked files all count: a generated artifact only passes the gate once
// it is committed. The result is sorted.
func (r *Repo) ChangedPaths(prefix string) ([]string, error) {
	status, err := r.status()
	if err != nil {
		return nil, err
	}

	var changed []string
	for path, st := range status {
		if !underPrefix(path, prefix) {
			continue
		}
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		changed = append(changed, path)
	}
	sort.Strings(changed)
	return changed, nil
}

// StatusSummary renders a porcelain-style listing of the entries under prefix,
// for the operator message when the published gate fails.
func (r *Repo) StatusSummary(prefix string) (string, error) {
	status, err := r.status()
	if err != nil {
		return "", err
	}

	var paths []string
	for path, st := range status {
		if !underPrefix(path, prefix) {
			continue
		}
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		st := status[path]
		if st.Worktree == git.Untracked {
			fmt.Fprintf(&b, "?? %s\n", path)
			continue
		}
		fmt.Fprintf(&b, "%c%c %s\n", rune(st.Staging), rune(st.Worktree), path)
	}
	return b.String(), nil
}

// RestoreFile resets one worktree file to its committed state, the equivalent
// of checking out the path. The path is worktree-relative. Restoring a path
// that was never committed is an error.
func (r *Repo) RestoreFile(path string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = worktree.Restore(&git.RestoreOptions{
		Staged:   true,
		Worktree: true,
		Files:    []string{path},
	})
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}

	slog.Debug("Restored volatile file", logfields.File(path))
	return nil
}

func (r *Repo) status() (git.Status, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to compute worktree status: %w", err)
	}
	return status, nil
}

// underPrefix reports whether the slash-separated path sits inside prefix.
// An empty prefix or "." matches the whole tree.
func underPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "." {
		return true
	}
	prefix = strings.TrimSuffix(filepath.ToSlash(prefix), "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
