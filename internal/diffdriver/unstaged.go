package diffdriver

import (
	"time"

	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/index"
	"golang.org/x/sync/errgroup"
)

// scanUnstaged implements spec.md §4.5's "Unstaged/untracked scan": build
// (or reuse) the Index model, collect dirty candidates, then diff those
// candidates against the index in pool-scheduled chunks. indexMTime is the
// on-disk index file's own mtime, threaded through to internal/index so it
// can detect a racy-git stat window (spec.md glossary).
func (r *Repo) scanUnstaged(entries []gitlib.IndexEntry, indexMTime time.Time, sb *Scoreboard, limits Limits) error {
	numShards := numShardsFor(len(entries), r.numThreads)

	r.mu.Lock()
	idx := r.idx
	if idx == nil {
		idx = index.Build(entries, r.order, indexMTime)
		idx.ComputeShards(numShards)
		r.idx = idx
	}
	r.mu.Unlock()

	probeResult, _ := r.probe.Result()
	candidates, err := idx.GetDirtyCandidates(r.git.Workdir(), probeResult, r.pool)
	if err != nil {
		return err
	}

	indexed := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		indexed[e.Path] = struct{}{}
	}

	chunks := splitIntoShards(len(candidates), numShards)

	var g errgroup.Group
	for _, ch := range chunks {
		chunk := candidates[ch.Start:ch.End]
		if len(chunk) == 0 {
			continue
		}
		scheduleOnPool(&g, r.pool, func() error {
			return gitlib.DiffWorkdirToIndex(r.git.Workdir(), chunk, indexed, func(d gitlib.Delta) gitlib.NotifyCode {
				return classifyUnstaged(d, sb, limits)
			})
		})
	}
	return g.Wait()
}

func classifyUnstaged(d gitlib.Delta, sb *Scoreboard, limits Limits) gitlib.NotifyCode {
	switch d.Status {
	case gitlib.StatusUntracked:
		untracked := sb.addUntracked(1)
		return capCode(untracked, limits.MaxNumUntracked, sb.unstagedCount(), limits.MaxNumUnstaged)
	case gitlib.StatusDeleted:
		sb.addUnstagedDeleted(1)
		unstaged := sb.addUnstaged(1)
		return capCode(unstaged, limits.MaxNumUnstaged, sb.untrackedCount(), limits.MaxNumUntracked)
	default:
		unstaged := sb.addUnstaged(1)
		return capCode(unstaged, limits.MaxNumUnstaged, sb.untrackedCount(), limits.MaxNumUntracked)
	}
}
