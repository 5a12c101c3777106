package linkcheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePage(t *testing.T, root, rel, body string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestCheck_CleanTree(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "index.html", `<html><head>
<link rel="stylesheet" href="_static/style.css">
</head><body>
<a href="api/client.html">client</a>
<a href="api/client.html#section">anchored</a>
<a href="https://example.com/elsewhere">external</a>
<a href="mailto:docs@example.com">mail</a>
<a href="#top">fragment</a>
<img src="data:image/png;base64,AAAA">
</body></html>`)
	writePage(t, root, "api/client.html", `<html><body>
<a href="../index.html">home</a>
<a href="/index.html">home absolute</a>
<a href="/api/">pretty</a>
<img src="../_static/logo.png">
</body></html>`)
	writePage(t, root, "api/index.html", `<html><body>ok</body></html>`)
	writePage(t, root, "_static/style.css", "body {}")
	writePage(t, root, "_static/logo.png", "png")

	res, err := Check(context.Background(), root)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Broken) != 0 {
		t.Fatalf("broken=%v, want none", res.Broken)
	}
	if res.Pages != 3 {
		t.Fatalf("pages=%d, want 3", res.Pages)
	}
	// index: stylesheet + 2 client links; client: 4 internal refs.
	if res.Refs != 7 {
		t.Fatalf("refs=%d, want 7", res.Refs)
	}
	if err := res.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestCheck_ReportsBrokenSorted(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "index.html", `<html><body>
<a href="missing.html">gone</a>
<img src="_static/absent.png">
</body></html>`)

	res, err := Check(context.Background(), root)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Broken) != 2 {
		t.Fatalf("broken=%d, want 2", len(res.Broken))
	}
	if res.Broken[0].Ref != "_static/absent.png" || res.Broken[1].Ref != "missing.html" {
		t.Fatalf("broken order = %v", res.Broken)
	}
	if res.Broken[1].Page != "index.html" || res.Broken[1].Target != "missing.html" {
		t.Fatalf("broken entry = %+v", res.Broken[1])
	}

	gerr := res.Err()
	if !errors.Is(gerr, ErrBrokenLinks) {
		t.Fatalf("Err() = %v, want ErrBrokenLinks", gerr)
	}
	if !strings.Contains(gerr.Error(), "missing.html") {
		t.Fatalf("error message %q lacks offender", gerr)
	}
}

func TestCheck_RefEscapingTreeIsBroken(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "index.html", `<a href="../outside.html">escape</a>`)

	res, err := Check(context.Background(), root)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Broken) != 1 {
		t.Fatalf("broken=%v, want the escaping ref", res.Broken)
	}
}

func TestCheck_DirTargetNeedsIndex(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "index.html", `<a href="api/">api</a>`)
	if err := os.MkdirAll(filepath.Join(root, "api"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	res, err := Check(context.Background(), root)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Broken) != 1 {
		t.Fatalf("broken=%v, want directory without index flagged", res.Broken)
	}

	writePage(t, root, "api/index.html", "ok")
	res, err = Check(context.Background(), root)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Broken) != 0 {
		t.Fatalf("broken=%v, want none once index exists", res.Broken)
	}
}

func TestCheck_MissingDir(t *testing.T) {
	_, err := Check(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestCheck_Canceled(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "index.html", "<a href=\"x.html\">x</a>")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Check(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		name string
		page string
		raw  string
		want string
		ok   bool
	}{
		{"sibling", "index.html", "other.html", "other.html", true},
		{"into subdir", "index.html", "api/client.html", "api/client.html", true},
		{"up one", "api/client.html", "../index.html", "index.html", true},
		{"site absolute", "api/client.html", "/index.html", "index.html", true},
		{"fragment stripped", "index.html", "other.html#sec", "other.html", true},
		{"query stripped", "index.html", "search.html?q=x", "search.html", true},
		{"escapes root", "index.html", "../outside.html", "../outside.html", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := resolveTarget(tc.page, tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("target=%q, want %q", got, tc.want)
			}
		})
	}
}
