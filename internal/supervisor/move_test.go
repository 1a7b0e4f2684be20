package supervisor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveWildcardFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	for _, name := range []string{"job7.json", "job7.nmap", "job8.json"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := moveWildcardFiles("job7*", src, dst); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"job7.json", "job7.nmap"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("expected %s to be moved: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(src, name)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be gone from source", name)
		}
	}

	if _, err := os.Stat(filepath.Join(src, "job8.json")); err != nil {
		t.Errorf("expected job8.json to remain in source: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "job8.json")); !os.IsNotExist(err) {
		t.Errorf("expected job8.json not to be moved")
	}
}

func TestMoveWildcardFilesOverwritesCollision(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	if err := os.WriteFile(filepath.Join(src, "job7.json"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dst, "job7.json"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := moveWildcardFiles("job7*", src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "job7.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("expected collision to be overwritten with new content, got %q", got)
	}
}
