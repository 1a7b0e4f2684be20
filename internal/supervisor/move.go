package supervisor

import (
	"os"
	"path/filepath"
)

// moveWildcardFiles moves every entry in sourceDir whose name matches
// pattern (the narrow '*'/'?' grammar in fnmatch.go) into destDir. Moves
// are per-file; a name collision at the destination overwrites.
func moveWildcardFiles(pattern, sourceDir, destDir string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !matchWildcard(pattern, name) {
			continue
		}
		src := filepath.Join(sourceDir, name)
		dst := filepath.Join(destDir, name)
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}
