// gitstatusd is a long-running daemon that answers "what is the current VCS
// status of the working tree at path P?" over a request/response record
// protocol on stdin/stdout, at interactive-shell-prompt latency.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/schmitthub/gitstatusd/internal/config"
	"github.com/schmitthub/gitstatusd/internal/diffdriver"
	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/logger"
	"github.com/schmitthub/gitstatusd/internal/pool"
	"github.com/schmitthub/gitstatusd/internal/protocol"
	"github.com/schmitthub/gitstatusd/internal/repocache"
	"github.com/schmitthub/gitstatusd/internal/sentinel"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

// exit codes per spec.md §6.
const (
	exitOK       = 0
	exitBadArgs  = 10
	exitFatalMin = 1
)

func newRootCmd(stdin io.Reader, stdout io.Writer) (*cobra.Command, *bool) {
	loadErr := new(bool)
	cmd := &cobra.Command{
		Use:           "gitstatusd",
		Short:         "Answer git working-tree status requests over stdin/stdout",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				*loadErr = true
				return err
			}
			return serve(cmd.Context(), cfg, stdin, stdout)
		},
	}
	config.AddFlags(cmd.Flags())
	return cmd, loadErr
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	cmd, badArgs := newRootCmd(stdin, stdout)
	cmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "gitstatusd:", err)
		if *badArgs {
			return exitBadArgs
		}
		return exitFatalMin
	}
	return exitOK
}

// serve is the daemon's main loop: initialize logging and shared
// infrastructure, then read one request at a time (the request loop is
// sequential per spec.md §5) until stdin closes or the sentinel is lost.
func serve(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer) error {
	logCfg := &logger.LoggingConfig{
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAgeDays: cfg.LogMaxAgeDays,
		MaxBackups: cfg.LogMaxBackups,
	}
	if err := logger.InitWithFile(logger.ParseLevel(cfg.LogLevel), cfg.LogDir, logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logger.Close()

	numThreads := cfg.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	p := pool.New(numThreads)
	defer p.Close()

	cache := repocache.New(p, numThreads, func() int64 { return time.Now().Unix() })

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.LockFD > 0 || cfg.ParentPID > 0 {
		sen := sentinel.New(cfg.LockFD, cfg.ParentPID)
		go sentinel.Watch(sctx, sen, cancel)
	}

	ttl := time.Duration(cfg.RepoTTLSeconds) * time.Second
	go evictLoop(sctx, cache, ttl)

	limits := diffdriver.Limits{
		MaxNumStaged:      cfg.MaxNumStaged,
		MaxNumUnstaged:    cfg.MaxNumUnstaged,
		MaxNumConflicted:  cfg.MaxNumConflicted,
		MaxNumUntracked:   cfg.MaxNumUntracked,
		DirtyMaxIndexSize: cfg.DirtyMaxIndexSize,
	}
	policy := diffdriver.Policy{
		IgnoreStatusShowUntrackedFiles: cfg.IgnoreStatusShowUntrackedFiles,
		IgnoreBashShowUntrackedFiles:   cfg.IgnoreBashShowUntrackedFiles,
		IgnoreBashShowDirtyState:       cfg.IgnoreBashShowDirtyState,
	}

	reader := protocol.NewReader(stdin)
	writer := protocol.NewWriter(stdout)

	for {
		select {
		case <-sctx.Done():
			return nil
		default:
		}

		req, err := reader.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			logger.Error().Err(err).Msg("reading request")
			return err
		}

		resp := handleRequest(cache, req, limits, policy)
		if err := writer.WriteResponse(resp); err != nil {
			logger.Error().Err(err).Msg("writing response")
			return err
		}
	}
}

// evictLoop periodically frees repository handles idle longer than ttl,
// per spec.md §4.8's RepoCache. Runs on its own goroutine so eviction never
// blocks the sequential request loop.
func evictLoop(ctx context.Context, cache *repocache.Cache, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cache.Free(now.Add(-ttl).Unix())
		}
	}
}

// handleRequest implements spec.md §2's control flow: dispatch →
// RepoCache.Open(dir) → read HEAD and its upstream → tag lookup → GetIndexStats
// → format the 18-field response. Any failure short of NotARepo is logged and
// degraded to a zero-record rather than crashing the request loop (spec.md §7).
func handleRequest(cache *repocache.Cache, req protocol.Request, limits diffdriver.Limits, policy diffdriver.Policy) protocol.Response {
	logger.SetContext(req.ID, req.Dir)
	defer logger.ClearContext()

	repo, err := cache.Open(req.Dir)
	if err != nil {
		if errors.Is(err, gitlib.ErrNotARepo) {
			return protocol.Response{ID: req.ID, IsRepo: false}
		}
		logger.Error().Err(err).Msg("opening repository")
		return protocol.Response{ID: req.ID, IsRepo: false}
	}

	git := repo.Git()

	head, err := git.Head()
	if err != nil {
		logger.Error().Err(err).Msg("resolving HEAD")
		return protocol.Response{ID: req.ID, IsRepo: false}
	}

	upstreamOID := ""
	if head.LocalBranch != "" {
		upstreamOID, err = git.UpstreamOID(head.LocalBranch)
		if err != nil {
			logger.Error().Err(err).Msg("resolving upstream")
		}
	}

	type tagResult struct {
		name string
		err  error
	}
	tagCh := make(chan tagResult, 1)
	go func() {
		tagDb := repo.TagDb()
		if err := tagDb.Refresh(); err != nil {
			tagCh <- tagResult{err: err}
			return
		}
		if head.OID == "" {
			tagCh <- tagResult{}
			return
		}
		name, err := tagDb.TagForCommit(head.OID, git)
		tagCh <- tagResult{name: name, err: err}
	}()

	stats, err := repo.GetIndexStats(head.OID, limits, policy)
	if err != nil {
		logger.Error().Err(err).Msg("scanning index")
		<-tagCh
		return protocol.Response{ID: req.ID, IsRepo: false}
	}

	ahead, behind, err := git.AheadBehind(head.OID, upstreamOID)
	if err != nil {
		logger.Error().Err(err).Msg("computing ahead/behind")
	}

	stashCount, err := git.StashCount()
	if err != nil {
		logger.Error().Err(err).Msg("counting stashes")
	}

	tag := <-tagCh
	if tag.err != nil {
		logger.Error().Err(tag.err).Msg("resolving tag for HEAD")
	}

	return protocol.Response{
		ID:     req.ID,
		IsRepo: true,
		Success: protocol.Success{
			Workdir:            git.Workdir(),
			HeadOID:            head.OID,
			LocalBranch:        head.LocalBranch,
			UpstreamBranch:     head.UpstreamBranch,
			UpstreamRemoteName: head.UpstreamRemoteName,
			UpstreamRemoteURL:  head.UpstreamRemoteURL,
			Action:             git.Action(),
			IndexSize:          stats.IndexSize,
			NumStaged:          stats.NumStaged,
			NumUnstaged:        stats.NumUnstaged,
			NumConflicted:      stats.NumConflicted,
			NumUntracked:       stats.NumUntracked,
			CommitsAhead:       ahead,
			CommitsBehind:      behind,
			NumStashes:         stashCount,
			TagName:            tag.name,
			NumUnstagedDeleted: stats.NumUnstagedDeleted,
		},
	}
}
