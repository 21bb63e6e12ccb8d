package diffdriver

import "fmt"

// GetIndexStats is the single public operation of spec.md §4.5: re-read the
// index, apply policy, run the staged/conflicted and unstaged/untracked
// scans concurrently, and return the capped counts.
func (r *Repo) GetIndexStats(headOID string, limits Limits, policy Policy) (IndexStats, error) {
	rawIdx, changed, err := r.git.ReadIndex(false)
	if err != nil {
		return IndexStats{}, fmt.Errorf("reading index: %w", err)
	}
	if changed {
		r.mu.Lock()
		r.idx = nil
		r.cachedHeadOID = ""
		r.mu.Unlock()
	}

	r.mu.Lock()
	primed := r.attrsPrimed
	r.mu.Unlock()
	if !primed {
		if err := r.git.PrimeAttributes(); err != nil {
			return IndexStats{}, fmt.Errorf("priming attribute cache: %w", err)
		}
		r.mu.Lock()
		r.attrsPrimed = true
		r.mu.Unlock()
	}

	effective := policy.apply(limits, r.git)
	sb := newScoreboard()

	r.mu.Lock()
	headMoved := headOID != r.cachedHeadOID
	r.mu.Unlock()
	// A negative cap means "unlimited" (per the original daemon's documented
	// --max-num-* semantics), so it counts as "wants this type" just like a
	// positive cap does; only exactly 0 means "don't scan this type".
	wantsCounts := effective.MaxNumStaged != 0 || effective.MaxNumConflicted != 0
	shouldScanStaged := headOID == "" || (headMoved && wantsCounts)

	var stagedErr, unstagedErr error
	sb.begin(1)
	go func() {
		if shouldScanStaged {
			stagedErr = r.scanStaged(rawIdx.Entries, headOID, sb, effective)
			if stagedErr == nil {
				r.mu.Lock()
				r.cachedHeadOID = headOID
				r.mu.Unlock()
			}
		}
		sb.done(stagedErr)
	}()

	// A negative --dirty-max-index-size means "unlimited" (never override the
	// unstaged/untracked caps down to zero for being too large), matching a
	// positive threshold's "skip the scan above this many index entries".
	dirtySizeOK := effective.DirtyMaxIndexSize < 0 || len(rawIdx.Entries) <= effective.DirtyMaxIndexSize
	wantsDirty := effective.MaxNumUnstaged != 0 || effective.MaxNumUntracked != 0

	sb.begin(1)
	go func() {
		if dirtySizeOK && wantsDirty {
			unstagedErr = r.scanUnstaged(rawIdx.Entries, rawIdx.MTime, sb, effective)
		}
		sb.done(unstagedErr)
	}()

	if err := sb.wait(); err != nil {
		return IndexStats{}, fmt.Errorf("scanning index: %w", err)
	}

	staged, unstaged, conflicted, untracked, unstagedDeleted := sb.snapshot()

	result := IndexStats{
		IndexSize:     len(rawIdx.Entries),
		NumStaged:     capValue(staged, effective.MaxNumStaged),
		NumUnstaged:   capValue(unstaged, effective.MaxNumUnstaged),
		NumConflicted: capValue(conflicted, effective.MaxNumConflicted),
		NumUntracked:  capValue(untracked, effective.MaxNumUntracked),
	}
	result.NumUnstagedDeleted = minInt(unstagedDeleted, result.NumUnstaged)
	return result, nil
}

// capValue mirrors spec.md §4.5's "num_staged = min(staged, cap_staged)"
// family of result fields. A negative maxCount means "unlimited" and never
// caps; a zero or positive maxCount caps normally (zero forces the result
// to 0, matching "don't scan this type" even if count is nonzero).
func capValue(count, maxCount int) int {
	if maxCount >= 0 && count > maxCount {
		return maxCount
	}
	return count
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
