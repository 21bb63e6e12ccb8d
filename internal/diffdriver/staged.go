package diffdriver

import (
	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"golang.org/x/sync/errgroup"
)

// scanStaged implements spec.md §4.5's "Staged/conflicted scan": an
// index-vs-tree diff sharded across the pool, with the short-circuit
// contract enforced per shard. An empty repo (headOID == "") counts every
// non-intent-to-add entry as staged directly, since there is no tree to
// diff against.
func (r *Repo) scanStaged(entries []gitlib.IndexEntry, headOID string, sb *Scoreboard, limits Limits) error {
	if headOID == "" {
		staged := 0
		for _, e := range entries {
			if !e.IntentToAdd {
				staged++
			}
		}
		sb.addStaged(staged)
		return nil
	}

	tree, err := r.git.CommitTree(headOID)
	if err != nil {
		return err
	}
	treePaths, err := gitlib.TreePaths(tree)
	if err != nil {
		return err
	}

	shards := splitIntoShards(len(entries), numShardsFor(len(entries), r.numThreads))

	var g errgroup.Group
	for _, sh := range shards {
		sh := sh
		scheduleOnPool(&g, r.pool, func() error {
			return gitlib.DiffIndexToTree(entries[sh.Start:sh.End], treePathsInRange(treePaths, entries[sh.Start:sh.End]), func(d gitlib.Delta) gitlib.NotifyCode {
				return classifyStaged(d, sb, limits)
			})
		})
	}
	return g.Wait()
}

// treePathsInRange narrows the shared tree-path map to the paths a shard's
// entries could plausibly touch, so DiffIndexToTree's "tree path with no
// index entry" pass only considers paths in this shard's own range and
// different shards never report the same staged deletion twice.
func treePathsInRange(all map[string]gitlib.TreeBlob, entries []gitlib.IndexEntry) map[string]gitlib.TreeBlob {
	if len(entries) == 0 {
		return map[string]gitlib.TreeBlob{}
	}
	lo, hi := entries[0].Path, entries[len(entries)-1].Path
	out := make(map[string]gitlib.TreeBlob, len(entries))
	for path, blob := range all {
		if path >= lo && path <= hi {
			out[path] = blob
		}
	}
	return out
}

func classifyStaged(d gitlib.Delta, sb *Scoreboard, limits Limits) gitlib.NotifyCode {
	if d.Status == gitlib.StatusConflicted {
		conflicted := sb.addConflicted(1)
		return capCode(conflicted, limits.MaxNumConflicted, sb.stagedCount(), limits.MaxNumStaged)
	}
	staged := sb.addStaged(1)
	return capCode(staged, limits.MaxNumStaged, sb.conflictedCount(), limits.MaxNumConflicted)
}

// capCode implements the three-valued short-circuit contract of spec.md
// §4.5: DoNotInsert while under cap, DoNotInsert|SkipType once this
// counter's cap is hit but the sibling counter can still move, or AbortUser
// once nothing further can matter. Both caps are checked dynamically against
// the sibling's live count, not just whether it was disabled up front —
// a sibling that started under its own cap can still fill up mid-scan. A
// negative maxCount means "unlimited" per the original daemon's documented
// --max-num-* semantics, so it never counts as capped; zero means "don't
// scan this type at all", so it's capped from the very first delta.
func capCode(count, maxCount, siblingCount, siblingMax int) gitlib.NotifyCode {
	if maxCount < 0 || count < maxCount {
		return gitlib.DoNotInsert
	}
	if siblingMax >= 0 && siblingCount >= siblingMax {
		return gitlib.AbortUser
	}
	return gitlib.DoNotInsert | gitlib.SkipType
}
