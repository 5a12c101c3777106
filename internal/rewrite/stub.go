package rewrite

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docgate/internal/config"
)

// PackageStub rewrites the configured package stub: configured automodule
// options are stripped (so wrapper-module members are not double-documented)
// and the generated dotted title is shortened to its last component.
type PackageStub struct {
	target string
	strip  map[string]bool
}

// NewPackageStub builds the native package-stub rewriter from configuration.
func NewPackageStub(cfg *config.Config) *PackageStub {
	strip := make(map[string]bool)
	for _, opt := range cfg.Rewrite.StripOptions {
		strip[":"+strings.Trim(opt, ":")+":"] = true
	}
	return &PackageStub{target: cfg.Stubs.PackageStub, strip: strip}
}

func (s *PackageStub) Name() string { return "package" }

func (s *PackageStub) Apply(_ context.Context, stagingDir string) error {
	return applyInPlace(filepath.Join(stagingDir, s.target), s.rewrite)
}

func (s *PackageStub) rewrite(src []byte) ([]byte, error) {
	lines := strings.Split(string(src), "\n")

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s.strip[strings.TrimSpace(line)] {
			continue
		}
		out = append(out, line)
	}

	if ti := findTitle(out); ti >= 0 {
		title := strings.TrimSpace(out[ti])
		if short := shortenTitle(title); short != title {
			out[ti] = short
			out[ti+1] = underlineFor(short, adornmentOf(out[ti+1]))
		}
	}

	return []byte(strings.Join(out, "\n")), nil
}

// shortenTitle reduces a generated "<dotted.module> <kind>" title to its last
// dotted component: "google.resumable\_media.requests package" becomes
// "requests package". Escaped underscores survive intact since dots are never
// escaped.
func shortenTitle(title string) string {
	name, kind, hasKind := strings.Cut(title, " ")
	parts := strings.Split(name, ".")
	short := parts[len(parts)-1]
	if hasKind {
		return short + " " + kind
	}
	return short
}
