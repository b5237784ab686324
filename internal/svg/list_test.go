package svg

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestListOutputsFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "b.svg", "<svg/>")
	writeTestFile(t, dir, "a.svg", "<svg/>")
	writeTestFile(t, dir, "c.txt", "not an svg")

	names, err := listOutputs(dir)
	if err != nil {
		t.Fatalf("listOutputs returned error: %v", err)
	}

	expected := []string{"a.svg", "b.svg"}
	if len(names) != len(expected) {
		t.Fatalf("unexpected names: %#v", names)
	}
	for i, want := range expected {
		if names[i] != want {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want)
		}
	}
}

func TestListOutputsCaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.svg", "<svg/>")
	writeTestFile(t, dir, "D.SVG", "<svg/>")

	names, err := listOutputs(dir)
	if err != nil {
		t.Fatalf("listOutputs returned error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("unexpected names: %#v", names)
	}
}

func TestListOutputsIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.svg", "<svg/>")
	if err := os.MkdirAll(filepath.Join(dir, "nested.svg"), 0o750); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	names, err := listOutputs(dir)
	if err != nil {
		t.Fatalf("listOutputs returned error: %v", err)
	}
	if len(names) != 1 || names[0] != "a.svg" {
		t.Fatalf("unexpected names: %#v", names)
	}
}

func TestListOutputsMissingDir(t *testing.T) {
	if _, err := listOutputs(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
