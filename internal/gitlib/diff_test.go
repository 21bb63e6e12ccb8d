package gitlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDiffWorkdirToIndexSkipTypeStopsThatStatus verifies the notify loop
// actually honors SkipType: once a notify call returns it, no further delta
// of that same DeltaStatus reaches the callback, while other statuses keep
// being reported.
func TestDiffWorkdirToIndexSkipTypeStopsThatStatus(t *testing.T) {
	root := t.TempDir()
	var candidates []string
	for _, name := range []string{"u1.txt", "u2.txt", "u3.txt", "m1.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
		candidates = append(candidates, name)
	}
	indexed := map[string]struct{}{"m1.txt": {}}

	var untrackedSeen, modifiedSeen int
	skippedUntracked := false
	err := DiffWorkdirToIndex(root, candidates, indexed, func(d Delta) NotifyCode {
		switch d.Status {
		case StatusUntracked:
			untrackedSeen++
			if untrackedSeen == 1 {
				skippedUntracked = true
				return DoNotInsert | SkipType
			}
			return DoNotInsert
		default:
			modifiedSeen++
			return DoNotInsert
		}
	})
	require.NoError(t, err)
	require.True(t, skippedUntracked)
	require.Equal(t, 1, untrackedSeen, "notify should not be called again for a skipped status")
	require.Equal(t, 1, modifiedSeen, "other statuses keep being reported after a sibling type is skipped")
}

// TestDiffWorkdirToIndexAbortStopsEverything confirms AbortUser still halts
// the whole scan, distinct from SkipType's narrower effect.
func TestDiffWorkdirToIndexAbortStopsEverything(t *testing.T) {
	root := t.TempDir()
	var candidates []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
		candidates = append(candidates, name)
	}

	calls := 0
	err := DiffWorkdirToIndex(root, candidates, map[string]struct{}{}, func(d Delta) NotifyCode {
		calls++
		return AbortUser
	})
	require.True(t, IsAbort(err))
	require.Equal(t, 1, calls)
}

func TestDiffIndexToTreeSkipTypeStopsDeletedPass(t *testing.T) {
	entries := []IndexEntry{
		{Path: "a.txt", blobHash: "aaa"},
	}
	treePaths := map[string]TreeBlob{
		"a.txt": {Hash: "aaa"},
		"b.txt": {Hash: "bbb"},
		"c.txt": {Hash: "ccc"},
	}

	deletedSeen := 0
	err := DiffIndexToTree(entries, treePaths, func(d Delta) NotifyCode {
		if d.Status == StatusDeleted {
			deletedSeen++
			return DoNotInsert | SkipType
		}
		return DoNotInsert
	})
	require.NoError(t, err)
	require.Equal(t, 1, deletedSeen)
}
