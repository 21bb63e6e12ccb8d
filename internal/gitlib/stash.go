package gitlib

import (
	"bufio"
	"os"
	"path/filepath"
)

// StashCount returns the number of stash entries. go-git has no stash API
// (spec.md §4.9 lists stash.foreach as an external-library primitive that
// this library simply doesn't provide), so this reads git's own on-disk
// record of stash history directly: one line per stash entry in
// .git/logs/refs/stash (pop and drop remove lines), the same reflog format `git stash list` reads. A
// missing file means zero stashes, not an error.
func (r *Repo) StashCount() (int, error) {
	f, err := os.Open(filepath.Join(r.gitDir, "logs", "refs", "stash"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}
