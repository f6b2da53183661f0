package files

import (
	"os"
	"path/filepath"
)

// FindUp searches for an entry with the given name in dir and each of
// its ancestors, returning the full path of the first match or "" if
// the filesystem root is reached without finding it.
func FindUp(name, dir string) (string, error) {
	curDir := dir
	for {
		entries, err := os.ReadDir(curDir)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			if name == e.Name() {
				return filepath.Join(curDir, name), nil
			}
		}
		newDir := filepath.Dir(curDir)
		if newDir == curDir {
			return "", nil
		}
		curDir = newDir
	}
}
