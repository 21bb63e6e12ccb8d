package repocache

import (
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v6"
	"github.com/schmitthub/gitstatusd/internal/pool"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	return dir
}

func TestOpenCachesByGitDir(t *testing.T) {
	dir := initRepo(t)
	p := pool.New(2)
	defer p.Close()

	clock := int64(0)
	c := New(p, 2, func() int64 { return clock })

	r1, err := c.Open(dir)
	require.NoError(t, err)
	r2, err := c.Open(filepath.Join(dir))
	require.NoError(t, err)

	require.Same(t, r1, r2)
	require.Equal(t, 1, c.Len())
}

func TestOpenReturnsErrNotARepoOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	p := pool.New(1)
	defer p.Close()
	c := New(p, 1, func() int64 { return 0 })

	_, err := c.Open(dir)
	require.Error(t, err)
}

func TestFreeEvictsOlderThanCutoff(t *testing.T) {
	dirA := initRepo(t)
	dirB := initRepo(t)
	p := pool.New(2)
	defer p.Close()

	clock := int64(0)
	c := New(p, 2, func() int64 { return clock })

	clock = 10
	_, err := c.Open(dirA)
	require.NoError(t, err)

	clock = 20
	_, err = c.Open(dirB)
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())

	c.Free(15)
	require.Equal(t, 1, c.Len())

	c.Free(25)
	require.Equal(t, 0, c.Len())
}

func TestFreeTouchAfterOpenKeepsEntryAlive(t *testing.T) {
	dir := initRepo(t)
	p := pool.New(1)
	defer p.Close()

	clock := int64(0)
	c := New(p, 1, func() int64 { return clock })

	clock = 1
	_, err := c.Open(dir)
	require.NoError(t, err)

	clock = 100
	_, err = c.Open(dir) // touches LRU, bumps lastUsed to 100
	require.NoError(t, err)

	c.Free(50)
	require.Equal(t, 1, c.Len())
}
