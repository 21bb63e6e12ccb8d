package gitlib

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/schmitthub/gitstatusd/internal/protocol"
)

// Action inspects the .git directory's state files to name the in-progress
// operation, mirroring what `git status` itself checks (MERGE_HEAD,
// rebase-{merge,apply}, sequencer state, BISECT_LOG). Field 7 of the wire
// response carries the result verbatim.
func (r *Repo) Action() protocol.RepoAction {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(r.gitDir, name))
		return err == nil
	}

	switch {
	case exists("rebase-merge"):
		if exists(filepath.Join("rebase-merge", "interactive")) {
			return protocol.ActionRebaseI
		}
		return protocol.ActionRebaseM
	case exists("rebase-apply"):
		if exists(filepath.Join("rebase-apply", "rebasing")) {
			return protocol.ActionRebase
		}
		if exists(filepath.Join("rebase-apply", "applying")) {
			return protocol.ActionAm
		}
		return protocol.ActionAmOrRebase
	case exists("MERGE_HEAD"):
		return protocol.ActionMerge
	case exists("CHERRY_PICK_HEAD"):
		if sequencerHasTodo(r.gitDir) {
			return protocol.ActionCherrySeq
		}
		return protocol.ActionCherry
	case exists("REVERT_HEAD"):
		if sequencerHasTodo(r.gitDir) {
			return protocol.ActionRevertSeq
		}
		return protocol.ActionRevert
	case exists("BISECT_LOG"):
		return protocol.ActionBisect
	default:
		return protocol.ActionNone
	}
}

// sequencerHasTodo reports whether .git/sequencer/todo has more than one
// pending line, meaning the cherry-pick/revert in progress is one step of a
// multi-commit sequence rather than a single one.
func sequencerHasTodo(gitDir string) bool {
	f, err := os.Open(filepath.Join(gitDir, "sequencer", "todo"))
	if err != nil {
		return false
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines++
		if lines > 1 {
			return true
		}
	}
	return false
}
