package gitlib

import (
	"os"
	"path/filepath"
)

// detectCaseSensitivity probes the filesystem backing root the same way git
// itself decides core.ignorecase at init time: create a file and stat it
// back under a differently-cased name. Errors are treated as case sensitive,
// the conservative choice (it never merges two distinct paths).
func detectCaseSensitivity(root string) bool {
	probe, err := os.CreateTemp(root, ".gitstatusd-casefold-")
	if err != nil {
		return true
	}
	name := probe.Name()
	probe.Close()
	defer os.Remove(name)

	upper := filepath.Join(filepath.Dir(name), toUpperASCII(filepath.Base(name)))
	if _, err := os.Stat(upper); err != nil {
		return true
	}
	return false
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
