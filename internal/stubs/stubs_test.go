package stubs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestInventory(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "google.rst", "")
	writeStub(t, dir, "google.resumable_media.rst", "")
	writeStub(t, dir, "notes.txt", "")
	if err := os.MkdirAll(filepath.Join(dir, "build"), 0o750); err != nil {
		t.Fatal(err)
	}

	files, err := Inventory(dir)
	if err != nil {
		t.Fatalf("Inventory failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 stubs, got %d: %v", len(files), files)
	}
	if files[0].Name != "google.resumable_media.rst" || files[0].Module != "google.resumable_media" {
		t.Errorf("unexpected first stub: %+v", files[0])
	}
	if files[1].Name != "google.rst" || files[1].Module != "google" {
		t.Errorf("unexpected second stub: %+v", files[1])
	}
}

func TestInventory_MissingDir(t *testing.T) {
	if _, err := Inventory(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing staging dir")
	}
}

func TestPrune_RemovesListedStubs(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "modules.rst", "")
	writeStub(t, dir, "google.rst", "")
	writeStub(t, dir, "index.rst", "kept")

	names := []string{"modules.rst", "google.rst"}
	if err := Prune(dir, names); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("stub %s still present", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "index.rst")); err != nil {
		t.Errorf("unlisted stub removed: %v", err)
	}

	// Second run over already-pruned stubs must succeed.
	if err := Prune(dir, names); err != nil {
		t.Fatalf("re-run failed: %v", err)
	}
}

func TestPromote(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "google.resumable_media.rst", "package overview")

	if err := Promote(dir, "google.resumable_media.rst", IndexName); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, IndexName))
	if err != nil {
		t.Fatalf("index missing after promote: %v", err)
	}
	if string(content) != "package overview" {
		t.Errorf("index content = %q", string(content))
	}
	if _, err := os.Stat(filepath.Join(dir, "google.resumable_media.rst")); !os.IsNotExist(err) {
		t.Error("source stub still present after promote")
	}

	// Source gone, index present: second promote is a no-op.
	if err := Promote(dir, "google.resumable_media.rst", IndexName); err != nil {
		t.Fatalf("re-run failed: %v", err)
	}
}

func TestPromote_OverwritesExistingIndex(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, IndexName, "stale")
	writeStub(t, dir, "google.resumable_media.rst", "fresh")

	if err := Promote(dir, "google.resumable_media.rst", IndexName); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, IndexName))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "fresh" {
		t.Errorf("index content = %q, want fresh", string(content))
	}
}

func TestPromote_NothingToPromote(t *testing.T) {
	err := Promote(t.TempDir(), "google.resumable_media.rst", IndexName)
	if err == nil {
		t.Fatal("expected error when neither source nor index exists")
	}
	if !strings.Contains(err.Error(), "google.resumable_media.rst") {
		t.Errorf("error does not name the missing stub: %v", err)
	}
}
