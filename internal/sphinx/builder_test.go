package sphinx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/docgate/internal/config"
	serrors "git.home.luguber.info/inful/docgate/internal/sphinx/errors"
)

// fakeBuilderScript records its arguments and creates the output directory
// (the final argument) so the post-render existence check passes.
const fakeBuilderScript = `printf '%s\n' "$@" > __ARGS__
for a; do last=$a; done
mkdir -p "$last"
`

func TestHTMLBuilder_StrictArgs(t *testing.T) {
	work := t.TempDir()
	argsFile := filepath.Join(work, "args.txt")
	installFakeTool(t, "sphinx-build", strings.Replace(fakeBuilderScript, "__ARGS__", argsFile, 1))

	staging := filepath.Join(work, "docs_build")
	if err := os.MkdirAll(staging, 0o750); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(work, "docs", "latest")

	b := NewHTMLBuilder(config.BuilderConfig{})
	if err := b.Build(context.Background(), staging, out); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("fake tool never ran: %v", err)
	}
	got := strings.Split(strings.TrimSpace(string(raw)), "\n")
	want := []string{"-W", "-T", "-N", "-b", "html", "-d", filepath.Join(staging, "build", "doctrees"), staging, out}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("arg[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output directory not created: %v", err)
	}
}

func TestHTMLBuilder_NonStrictOmitsWarningFlag(t *testing.T) {
	work := t.TempDir()
	argsFile := filepath.Join(work, "args.txt")
	installFakeTool(t, "sphinx-build", strings.Replace(fakeBuilderScript, "__ARGS__", argsFile, 1))

	staging := filepath.Join(work, "src")
	if err := os.MkdirAll(staging, 0o750); err != nil {
		t.Fatal(err)
	}

	off := false
	b := NewHTMLBuilder(config.BuilderConfig{Strict: &off})
	if err := b.Build(context.Background(), staging, filepath.Join(work, "out")); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, arg := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if arg == "-W" {
			t.Fatal("-W passed despite strict mode disabled")
		}
	}
}

func TestHTMLBuilder_FailureSurfacesOutput(t *testing.T) {
	installFakeTool(t, "sphinx-build", "echo 'WARNING: toctree contains reference to nonexisting document' >&2\nexit 2\n")

	work := t.TempDir()
	staging := filepath.Join(work, "src")
	if err := os.MkdirAll(staging, 0o750); err != nil {
		t.Fatal(err)
	}

	b := NewHTMLBuilder(config.BuilderConfig{})
	err := b.Build(context.Background(), staging, filepath.Join(work, "out"))
	if err == nil {
		t.Fatal("expected error from failing tool")
	}
	if !errors.Is(err, serrors.ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed, got: %v", err)
	}
	if !strings.Contains(err.Error(), "toctree contains reference") {
		t.Fatalf("tool output not surfaced: %v", err)
	}
}

func TestHTMLBuilder_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	b := NewHTMLBuilder(config.BuilderConfig{Command: "definitely-not-installed"})
	err := b.Build(context.Background(), t.TempDir(), "out")
	if !errors.Is(err, serrors.ErrBuilderNotFound) {
		t.Fatalf("expected ErrBuilderNotFound, got: %v", err)
	}
}

func TestHTMLBuilder_MissingStagingDir(t *testing.T) {
	installFakeTool(t, "sphinx-build", "exit 0\n")

	b := NewHTMLBuilder(config.BuilderConfig{})
	err := b.Build(context.Background(), filepath.Join(t.TempDir(), "absent"), "out")
	if err == nil || !strings.Contains(err.Error(), "staging directory not found") {
		t.Fatalf("expected missing staging error, got: %v", err)
	}
}

func TestNoopBuilder(t *testing.T) {
	if err := (NoopBuilder{}).Build(context.Background(), "src", "out"); err != nil {
		t.Fatalf("noop builder returned error: %v", err)
	}
}
