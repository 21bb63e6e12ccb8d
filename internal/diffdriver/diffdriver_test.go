package diffdriver

import (
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/pool"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (dir string, headOID string) {
	t.Helper()
	dir = t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("a.txt")
	require.NoError(t, err)

	sig := &object.Signature{Name: "t", Email: "t@example.com"}
	hash, err := wt.Commit("init", &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return dir, hash.String()
}

func TestGetIndexStatsCleanRepo(t *testing.T) {
	dir, head := newTestRepo(t)
	git, err := gitlib.Discover(dir)
	require.NoError(t, err)

	p := pool.New(4)
	defer p.Close()
	r := New(git, p, 4)
	defer r.Close()

	limits := Limits{MaxNumStaged: 100, MaxNumUnstaged: 100, MaxNumConflicted: 100, MaxNumUntracked: 100, DirtyMaxIndexSize: 100000}
	stats, err := r.GetIndexStats(head, limits, Policy{})
	require.NoError(t, err)

	require.Equal(t, 1, stats.IndexSize)
	require.Equal(t, 0, stats.NumStaged)
	require.Equal(t, 0, stats.NumUnstaged)
	require.Equal(t, 0, stats.NumUntracked)
}

func TestGetIndexStatsDetectsUntrackedFile(t *testing.T) {
	dir, head := newTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("new"), 0o644))

	git, err := gitlib.Discover(dir)
	require.NoError(t, err)
	p := pool.New(4)
	defer p.Close()
	r := New(git, p, 4)
	defer r.Close()

	limits := Limits{MaxNumStaged: 100, MaxNumUnstaged: 100, MaxNumConflicted: 100, MaxNumUntracked: 100, DirtyMaxIndexSize: 100000}
	stats, err := r.GetIndexStats(head, limits, Policy{})
	require.NoError(t, err)
	require.Equal(t, 1, stats.NumUntracked)
}

func TestGetIndexStatsDetectsModifiedFile(t *testing.T) {
	dir, head := newTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed"), 0o644))

	git, err := gitlib.Discover(dir)
	require.NoError(t, err)
	p := pool.New(4)
	defer p.Close()
	r := New(git, p, 4)
	defer r.Close()

	limits := Limits{MaxNumStaged: 100, MaxNumUnstaged: 100, MaxNumConflicted: 100, MaxNumUntracked: 100, DirtyMaxIndexSize: 100000}
	stats, err := r.GetIndexStats(head, limits, Policy{})
	require.NoError(t, err)
	require.Equal(t, 1, stats.NumUnstaged)
	require.Equal(t, 0, stats.NumUnstagedDeleted)
}

func TestGetIndexStatsEmptyRepoCountsStaged(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("a.txt")
	require.NoError(t, err)

	git, err := gitlib.Discover(dir)
	require.NoError(t, err)
	p := pool.New(2)
	defer p.Close()
	r := New(git, p, 2)
	defer r.Close()

	limits := Limits{MaxNumStaged: 100, MaxNumUnstaged: 100, MaxNumConflicted: 100, MaxNumUntracked: 100, DirtyMaxIndexSize: 100000}
	stats, err := r.GetIndexStats("", limits, Policy{})
	require.NoError(t, err)
	require.Equal(t, 1, stats.NumStaged)
}

func TestCapCodeShortCircuit(t *testing.T) {
	// Sibling still has room (siblingCount 0 < siblingMax 5): capped counter
	// only skips its own type.
	require.Equal(t, gitlib.DoNotInsert, capCode(0, 5, 0, 5))
	require.Equal(t, gitlib.DoNotInsert|gitlib.SkipType, capCode(5, 5, 0, 5))
	// Sibling is also at its cap: nothing further can change the result.
	require.Equal(t, gitlib.AbortUser, capCode(5, 5, 5, 5))
}

func TestCapCodeSiblingCheckIsDynamic(t *testing.T) {
	// The sibling started under its cap but has since filled up — capCode
	// must observe that live state, not just whether the sibling was
	// disabled (max == 0) from the start.
	require.Equal(t, gitlib.AbortUser, capCode(3, 3, 2, 2))
	require.Equal(t, gitlib.DoNotInsert|gitlib.SkipType, capCode(3, 3, 1, 2))
}

func TestCapCodeNegativeMaxCountIsUnlimited(t *testing.T) {
	require.Equal(t, gitlib.DoNotInsert, capCode(0, -1, 0, 5))
	require.Equal(t, gitlib.DoNotInsert, capCode(1000, -1, 0, 5))
	require.Equal(t, gitlib.DoNotInsert, capCode(1000, -1, 5, 5))
	// A sibling with a negative (unlimited) cap is never "exhausted".
	require.Equal(t, gitlib.DoNotInsert|gitlib.SkipType, capCode(5, 5, 1000, -1))
}

func TestCapValueNegativeMaxCountIsUnlimited(t *testing.T) {
	require.Equal(t, 1000, capValue(1000, -1))
	require.Equal(t, 5, capValue(7, 5))
	require.Equal(t, 0, capValue(3, 0))
}

func TestGetIndexStatsNegativeCapsAreUnlimited(t *testing.T) {
	dir, head := newTestRepo(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked"+string(rune('a'+i))+".txt"), []byte("x"), 0o644))
	}

	git, err := gitlib.Discover(dir)
	require.NoError(t, err)
	p := pool.New(4)
	defer p.Close()
	r := New(git, p, 4)
	defer r.Close()

	limits := Limits{MaxNumStaged: -1, MaxNumUnstaged: -1, MaxNumConflicted: -1, MaxNumUntracked: -1, DirtyMaxIndexSize: -1}
	stats, err := r.GetIndexStats(head, limits, Policy{})
	require.NoError(t, err)
	require.Equal(t, 5, stats.NumUntracked)
}

func TestSplitIntoShardsCoversWholeRange(t *testing.T) {
	shards := splitIntoShards(17, 4)
	total := 0
	for _, s := range shards {
		total += s.End - s.Start
	}
	require.Equal(t, 17, total)
}

func TestSplitIntoShardsHandlesEmpty(t *testing.T) {
	shards := splitIntoShards(0, 4)
	require.Len(t, shards, 1)
	require.Equal(t, 0, shards[0].End-shards[0].Start)
}
