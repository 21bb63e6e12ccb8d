package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v6"
	"github.com/schmitthub/gitstatusd/internal/diffdriver"
	"github.com/schmitthub/gitstatusd/internal/pool"
	"github.com/schmitthub/gitstatusd/internal/protocol"
	"github.com/schmitthub/gitstatusd/internal/repocache"
	"github.com/stretchr/testify/require"
)

func TestHandleRequestEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	p := pool.New(2)
	defer p.Close()
	cache := repocache.New(p, 2, func() int64 { return 0 })

	limits := diffdriver.Limits{MaxNumStaged: 100, MaxNumUnstaged: 100, MaxNumConflicted: 100, MaxNumUntracked: 100, DirtyMaxIndexSize: 100000}
	resp := handleRequest(cache, protocol.Request{ID: "r", Dir: dir}, limits, diffdriver.Policy{})

	require.True(t, resp.IsRepo)
	require.Equal(t, "r", resp.ID)
	require.Equal(t, dir, resp.Success.Workdir)
	require.Equal(t, "", resp.Success.HeadOID)
	require.Equal(t, 0, resp.Success.IndexSize)
}

func TestHandleRequestNotARepo(t *testing.T) {
	dir := t.TempDir()
	p := pool.New(1)
	defer p.Close()
	cache := repocache.New(p, 1, func() int64 { return 0 })

	resp := handleRequest(cache, protocol.Request{ID: "r", Dir: dir}, diffdriver.Limits{}, diffdriver.Policy{})
	require.False(t, resp.IsRepo)
	require.Equal(t, "r", resp.ID)
}

func TestServeRoundTripsOneRequest(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	reqRecord := fmt.Sprintf("req1%c%s%c", protocol.FS, dir, protocol.RS)
	in := bytes.NewBufferString(reqRecord)
	var out bytes.Buffer

	args := []string{"--max-num-staged=10", "--max-num-unstaged=10", "--max-num-conflicted=10", "--max-num-untracked=10"}
	cmd, _ := newRootCmd(in, &out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	require.Contains(t, out.String(), "req1")
}

func TestFullDaemonS1EmptyRepoResponse(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)

	reqRecord := fmt.Sprintf("r%c%s%c", protocol.FS, absDir, protocol.RS)
	in := bytes.NewBufferString(reqRecord)
	var out bytes.Buffer

	cmd, _ := newRootCmd(in, &out)
	// A nil slice makes cobra fall back to os.Args, which holds the test
	// binary's own -test.* flags; an empty slice runs with the defaults.
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	got := out.String()
	require.Contains(t, got, string(rune(protocol.FS))+"1"+string(rune(protocol.FS)))
}

func TestNewRootCmdRejectsBadLogLevel(t *testing.T) {
	cmd, badArgs := newRootCmd(bytes.NewBufferString(""), &bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level=NOPE"})
	err := cmd.Execute()
	require.Error(t, err)
	require.True(t, *badArgs)
}
