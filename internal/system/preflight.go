package system

import (
	"os"
	"path/filepath"
)

// EnsureBaseDirs creates the code, local and bin directories if they don't
// exist.
func (p Prefix) EnsureBaseDirs() error {
	for _, dir := range []string{p.Code(), p.Local(), p.Bin()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// MissingBinaries returns the names, in order, that have no entry in binDir.
// A dangling symlink counts as present.
func MissingBinaries(binDir string, names []string) []string {
	var missing []string
	for _, name := range names {
		if _, err := os.Lstat(filepath.Join(binDir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
