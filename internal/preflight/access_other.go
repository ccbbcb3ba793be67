//go:build !unix

package preflight

import (
	"fmt"
	"os"
	"path/filepath"
)

// checkAccess probes writability by creating and removing a temp file.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".lipsync-access-*")
	if err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
