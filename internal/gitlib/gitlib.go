// Package gitlib is the facade over the external git object model that
// spec.md §4.9 calls out as an out-of-scope collaborator: repository
// discovery, index reads, reference/branch/remote resolution, tree and
// commit lookup, ahead/behind counting, stash enumeration and attribute
// cache priming. Everything here is a thin, purpose-built wrapper around
// go-git/v6 — the core packages (internal/index, internal/diffdriver,
// internal/tagdb) never import go-git directly.
package gitlib

import (
	"errors"
	"fmt"

	billy "github.com/go-git/go-billy/v6"
	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// ErrNotARepo is returned by Discover when path is not inside a git
// working tree, or is a bare repository (bare repos have no status to
// report — spec.md §7 treats "bare or empty workdir" as NotARepo too).
var ErrNotARepo = errors.New("not a git repository")

// Repo wraps an open go-git repository plus the pieces of derived state the
// core needs repeatedly: workdir root, .git directory, case sensitivity.
type Repo struct {
	repo *gogit.Repository

	gitDir        string
	workdir       string
	caseSensitive bool
	lastIndexSig  uint64
}

// Discover walks up from dir looking for a .git directory or file, the way
// `git rev-parse --show-toplevel` does, and opens the repository it finds.
func Discover(dir string) (*Repo, error) {
	gr, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, ErrNotARepo
		}
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}

	wt, err := gr.Worktree()
	if err != nil {
		// Bare repository: no working tree, nothing for a status daemon to say.
		return nil, ErrNotARepo
	}

	r := &Repo{
		repo:    gr,
		workdir: wt.Filesystem.Root(),
	}
	if err := r.primeGitDir(); err != nil {
		return nil, err
	}
	r.caseSensitive = detectCaseSensitivity(r.workdir)
	return r, nil
}

func (r *Repo) primeGitDir() error {
	if s, ok := r.repo.Storer.(interface{ Filesystem() billy.Filesystem }); ok {
		r.gitDir = s.Filesystem().Root()
		return nil
	}
	// Fall back to the conventional layout; go-git's filesystem storer always
	// satisfies the interface above in practice, this branch only guards
	// against alternative Storer implementations passed in by tests.
	r.gitDir = r.workdir + "/.git"
	return nil
}

// Workdir returns the absolute working tree root, no trailing slash.
func (r *Repo) Workdir() string { return r.workdir }

// GitDir returns the repository's .git directory, used by internal/tagdb
// and internal/repocache as the cache key.
func (r *Repo) GitDir() string { return r.gitDir }

// CaseSensitive reports whether the repository's filesystem preserves case
// distinctions for path lookups, as measured once by Discover's filesystem
// probe (detectCaseSensitivity), the same kind of probe git runs to pick
// core.ignorecase at clone/init time.
func (r *Repo) CaseSensitive() bool { return r.caseSensitive }

// ConfigBool reads a boolean value out of the repository's config file
// (spec.md §4.5 policy toggles: status.showUntrackedFiles,
// bash.showUntrackedFiles, bash.showDirtyState). ok is false if the section
// or key is absent, in which case the caller should apply its own default.
func (r *Repo) ConfigBool(section, key string) (value bool, ok bool) {
	cfg, err := r.repo.Config()
	if err != nil || cfg.Raw == nil {
		return false, false
	}
	sec := cfg.Raw.Section(section)
	if sec == nil || !sec.HasOption(key) {
		return false, false
	}
	raw := sec.Option(key)
	switch raw {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// resolveOID formats a plumbing.Hash as the 40-char hex string the wire
// protocol uses, or "" for the zero hash (unborn HEAD).
func resolveOID(h plumbing.Hash) string {
	if h.IsZero() {
		return ""
	}
	return h.String()
}
