package rewrite

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/stubs"
)

// Index rewrites the promoted index stub: the generated package title is
// replaced with the project title, a preamble is inserted from the project
// description and the optional README intro, and every toctree is normalized
// (sorted entries, pruned stubs dropped, fixed maxdepth).
type Index struct {
	title       string
	description string
	readmePath  string
	maxdepth    int
	exclude     map[string]bool
}

// NewIndex builds the native index rewriter from configuration. root anchors
// the relative README path.
func NewIndex(cfg *config.Config, root string) *Index {
	exclude := make(map[string]bool)
	for _, name := range cfg.PruneList() {
		exclude[strings.TrimSuffix(name, ".rst")] = true
	}
	readme := cfg.Project.Readme
	if readme != "" && !filepath.IsAbs(readme) {
		readme = filepath.Join(root, readme)
	}
	maxdepth := cfg.Rewrite.ToctreeMaxdepth
	if maxdepth <= 0 {
		maxdepth = 4
	}
	return &Index{
		title:       collapseWhitespace(cfg.Project.Title),
		description: collapseWhitespace(cfg.Project.Description),
		readmePath:  readme,
		maxdepth:    maxdepth,
		exclude:     exclude,
	}
}

func (s *Index) Name() string { return "index" }

func (s *Index) Apply(_ context.Context, stagingDir string) error {
	intro := ""
	if s.readmePath != "" {
		text, err := readmeIntro(s.readmePath)
		if err != nil {
			return fmt.Errorf("extract readme intro: %w", err)
		}
		intro = text
	}
	return applyInPlace(filepath.Join(stagingDir, stubs.IndexName), func(src []byte) ([]byte, error) {
		return s.rewrite(src, intro)
	})
}

func (s *Index) rewrite(src []byte, intro string) ([]byte, error) {
	lines := strings.Split(string(src), "\n")

	ti := findTitle(lines)
	if ti < 0 {
		return nil, fmt.Errorf("no section title found in %s", stubs.IndexName)
	}

	title := s.title
	if title == "" {
		title = strings.TrimSpace(lines[ti])
	}
	adornment := adornmentOf(lines[ti+1])

	body := lines[ti+2:]
	body = dropLeadingBlank(body)
	// Strip a preamble left by a previous application so re-runs converge.
	for _, para := range s.preamble(intro) {
		if len(body) > 0 && body[0] == para {
			body = dropLeadingBlank(body[1:])
		}
	}

	out := make([]string, 0, len(lines)+6)
	out = append(out, title, underlineFor(title, adornment), "")
	for _, para := range s.preamble(intro) {
		out = append(out, para, "")
	}
	out = append(out, normalizeToctrees(body, s.maxdepth, s.exclude)...)

	return []byte(strings.Join(out, "\n")), nil
}

// preamble returns the single-line paragraphs inserted under the title.
func (s *Index) preamble(intro string) []string {
	paras := make([]string, 0, 2)
	if s.description != "" {
		paras = append(paras, s.description)
	}
	if intro != "" && intro != s.description {
		paras = append(paras, intro)
	}
	return paras
}

func dropLeadingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return lines
}

// normalizeToctrees rewrites every toctree directive in lines: the maxdepth
// option is pinned, entries are sorted, deduplicated, and excluded module
// names are dropped. Everything else passes through verbatim.
func normalizeToctrees(lines []string, maxdepth int, exclude map[string]bool) []string {
	out := make([]string, 0, len(lines))
	i := 0
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) != ".. toctree::" {
			out = append(out, lines[i])
			i++
			continue
		}
		out = append(out, lines[i])
		i++

		// Option block. maxdepth is pinned, other options pass through.
		sawMaxdepth := false
		for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), ":") {
			if strings.HasPrefix(strings.TrimSpace(lines[i]), ":maxdepth:") {
				out = append(out, fmt.Sprintf("   :maxdepth: %d", maxdepth))
				sawMaxdepth = true
			} else {
				out = append(out, lines[i])
			}
			i++
		}
		if !sawMaxdepth {
			out = append(out, fmt.Sprintf("   :maxdepth: %d", maxdepth))
		}

		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		out = append(out, "")

		// Entry block: indented lines, possibly blank-separated.
		entries := make([]string, 0, 8)
		indent := "   "
		for i < len(lines) {
			line := lines[i]
			if strings.TrimSpace(line) == "" {
				j := i
				for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
					j++
				}
				if j < len(lines) && isEntryLine(lines[j]) {
					i = j
					continue
				}
				break
			}
			if !isEntryLine(line) {
				break
			}
			if lead := line[:len(line)-len(strings.TrimLeft(line, " "))]; lead != "" {
				indent = lead
			}
			entries = append(entries, strings.TrimSpace(line))
			i++
		}
		sort.Strings(entries)
		prev := ""
		for _, e := range entries {
			if e == prev || exclude[e] {
				continue
			}
			out = append(out, indent+e)
			prev = e
		}
	}
	return out
}

// isEntryLine reports whether line is a toctree entry: indented, non-empty,
// and not a directive option.
func isEntryLine(line string) bool {
	if !strings.HasPrefix(line, " ") {
		return false
	}
	t := strings.TrimSpace(line)
	return t != "" && !strings.HasPrefix(t, ":")
}
