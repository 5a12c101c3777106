package rewrite

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// readmeIntro extracts the first prose paragraph following the first heading
// of a Markdown README. Inline markup is reduced to its text content and
// soft line breaks collapse into spaces. A README without a heading yields
// an empty intro, not an error.
func readmeIntro(path string) (string, error) {
	// #nosec G304 -- path comes from configuration
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read readme: %w", err)
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	seenHeading := false
	intro := ""
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if _, ok := n.(*gmast.Heading); ok {
			seenHeading = true
			return gmast.WalkSkipChildren, nil
		}
		if para, ok := n.(*gmast.Paragraph); ok && seenHeading {
			// Badge rows commonly sit right under the title; skip any
			// paragraph that is images rather than prose.
			if containsImage(para) {
				return gmast.WalkSkipChildren, nil
			}
			prose := collapseWhitespace(nodeText(para, src))
			if prose == "" {
				return gmast.WalkSkipChildren, nil
			}
			intro = prose
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})

	return intro, nil
}

func containsImage(n gmast.Node) bool {
	found := false
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if _, ok := child.(*gmast.Image); ok {
			found = true
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return found
}

// nodeText collects the text segments beneath n, joining line breaks with
// spaces. Link destinations and markup delimiters are not part of the result.
func nodeText(n gmast.Node, src []byte) string {
	var buf strings.Builder
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := child.(*gmast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return gmast.WalkContinue, nil
	})
	return buf.String()
}
