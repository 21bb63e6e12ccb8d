package diffdriver

// Limits are the per-request caps from the CLI surface (spec.md §6):
// --max-num-staged, --max-num-unstaged, --max-num-conflicted,
// --max-num-untracked, --dirty-max-index-size. Zero means "don't scan this
// category at all", per the policy toggles in §4.5; negative means
// "unlimited", per the original daemon's documented flag semantics.
type Limits struct {
	MaxNumStaged      int
	MaxNumUnstaged    int
	MaxNumConflicted  int
	MaxNumUntracked   int
	DirtyMaxIndexSize int
}

// Policy carries the three git-config toggles spec.md §4.5 says zero out
// caps for a single call, each pairable with a CLI override that ignores
// the repo config's opinion.
type Policy struct {
	IgnoreStatusShowUntrackedFiles bool
	IgnoreBashShowUntrackedFiles   bool
	IgnoreBashShowDirtyState       bool
}

// apply zeroes caps according to repo config and the ignore-flags in p,
// returning a new Limits (the caller's original Limits is never mutated,
// since spec.md says the zeroing applies "for this call only").
func (p Policy) apply(l Limits, cfg configReader) Limits {
	out := l

	showUntracked, ok := cfg.ConfigBool("status", "showUntrackedFiles")
	if ok && !showUntracked && !p.IgnoreStatusShowUntrackedFiles {
		out.MaxNumUntracked = 0
	}
	bashUntracked, ok := cfg.ConfigBool("bash", "showUntrackedFiles")
	if ok && !bashUntracked && !p.IgnoreBashShowUntrackedFiles {
		out.MaxNumUntracked = 0
	}
	bashDirty, ok := cfg.ConfigBool("bash", "showDirtyState")
	if ok && !bashDirty && !p.IgnoreBashShowDirtyState {
		out.MaxNumStaged = 0
		out.MaxNumUnstaged = 0
		out.MaxNumConflicted = 0
	}
	return out
}

// configReader is the narrow slice of gitlib.Repo that Policy needs, kept
// as an interface so tests can supply a fake without a real repository.
type configReader interface {
	ConfigBool(section, key string) (value bool, ok bool)
}

// IndexStats is the result of GetIndexStats, the fields that feed directly
// into the wire response's counters (spec.md §4.5 "Result fields").
type IndexStats struct {
	IndexSize          int
	NumStaged          int
	NumUnstaged        int
	NumConflicted      int
	NumUntracked       int
	NumUnstagedDeleted int
}
