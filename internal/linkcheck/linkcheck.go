// Package linkcheck verifies that internal references in a rendered HTML
// tree resolve to files within that tree. External URLs, mail and data
// schemes, and bare fragments are out of scope; the check is purely
// filesystem-based and needs no network.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docgate/internal/logfields"
)

// ErrBrokenLinks reports that one or more internal references did not
// resolve inside the tree.
var ErrBrokenLinks = errors.New("broken internal links")

// Broken describes one internal reference that does not resolve.
type Broken struct {
	Page   string `json:"page"`   // tree-relative HTML file containing the reference
	Ref    string `json:"ref"`    // attribute value as written
	Target string `json:"target"` // tree-relative path the reference resolves to
	Tag    string `json:"tag"`    // element the reference came from
}

func (b Broken) String() string {
	return fmt.Sprintf("%s: <%s> %s -> %s", b.Page, b.Tag, b.Ref, b.Target)
}

// Result aggregates a tree check.
type Result struct {
	Pages  int      `json:"pages"`
	Refs   int      `json:"refs"` // internal references checked
	Broken []Broken `json:"broken,omitempty"`
}

// Err folds the result into an error when any reference is broken. The
// message lists the first few offenders so the operator can act without
// digging through logs.
func (r *Result) Err() error {
	if len(r.Broken) == 0 {
		return nil
	}
	const listed = 5
	lines := make([]string, 0, listed+1)
	for i, b := range r.Broken {
		if i == listed {
			lines = append(lines, fmt.Sprintf("... and %d more", len(r.Broken)-listed))
			break
		}
		lines = append(lines, b.String())
	}
	return fmt.Errorf("%w: %d of %d references\n%s", ErrBrokenLinks, len(r.Broken), r.Refs, strings.Join(lines, "\n"))
}

// Check walks every .html file under dir and resolves each internal
// reference against the tree. The returned broken list is sorted by page
// then reference for stable output.
func Check(ctx context.Context, dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("published directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("published path is not a directory: %s", dir)
	}

	var pages []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".html") {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk published tree: %w", err)
	}
	sort.Strings(pages)

	res := &Result{Pages: len(pages)}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(dir, page)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize %s: %w", page, err)
		}
		rel = filepath.ToSlash(rel)
		if err := checkPage(dir, rel, page, res); err != nil {
			return nil, err
		}
	}

	sort.Slice(res.Broken, func(i, j int) bool {
		if res.Broken[i].Page != res.Broken[j].Page {
			return res.Broken[i].Page < res.Broken[j].Page
		}
		return res.Broken[i].Ref < res.Broken[j].Ref
	})
	slog.Debug("Link check finished", logfields.Dir(dir), "pages", res.Pages, "refs", res.Refs, "broken", len(res.Broken))
	return res, nil
}

func checkPage(root, rel, page string, res *Result) error {
	f, err := os.Open(filepath.Clean(page))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer func() {
		_ = f.Close() // read-only
	}()

	doc, err := html.Parse(f)
	if err != nil {
		// The HTML5 parser recovers from malformed markup; an error here
		// means the read itself failed.
		return fmt.Errorf("failed to parse %s: %w", rel, err)
	}

	for _, ref := range collectRefs(doc) {
		if !checkable(ref.value) {
			continue
		}
		res.Refs++
		target, ok := resolveTarget(rel, ref.value)
		if !ok || !targetExists(root, target) {
			res.Broken = append(res.Broken, Broken{Page: rel, Ref: ref.value, Target: target, Tag: ref.tag})
		}
	}
	return nil
}

// ref is one raw link-bearing attribute found in a document.
type ref struct {
	tag   string
	value string
}

// collectRefs walks the node tree gathering href/src values from the
// elements that reference other files.
func collectRefs(doc *html.Node) []ref {
	var refs []ref
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a", "link":
				if v := getAttr(n, "href"); v != "" {
					refs = append(refs, ref{tag: n.Data, value: v})
				}
			case "img", "script", "source", "video", "audio", "iframe":
				if v := getAttr(n, "src"); v != "" {
					refs = append(refs, ref{tag: n.Data, value: v})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// checkable reports whether a reference is an internal file reference.
// Absolute URLs, non-file schemes, and bare fragments are skipped.
func checkable(raw string) bool {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

// resolveTarget turns a reference on page rel into a tree-relative slash
// path. Fragments and query strings are stripped first. The second return
// is false when the reference climbs out of the tree.
func resolveTarget(rel, raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, false
	}
	p := u.Path
	if p == "" {
		return raw, false
	}
	if strings.HasPrefix(p, "/") {
		p = strings.TrimPrefix(p, "/")
	} else {
		p = path.Join(path.Dir(rel), p)
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return p, false
	}
	return p, true
}

// targetExists checks the resolved path against the tree. A directory
// target counts when it holds an index.html, matching how servers resolve
// trailing-slash URLs.
func targetExists(root, target string) bool {
	full := filepath.Join(root, filepath.FromSlash(target))
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err := os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	return true
}
