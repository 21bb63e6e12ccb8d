package diffdriver

import (
	"sync"

	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/index"
	"github.com/schmitthub/gitstatusd/internal/mtimeprobe"
	"github.com/schmitthub/gitstatusd/internal/pool"
	"github.com/schmitthub/gitstatusd/internal/strcmp"
	"github.com/schmitthub/gitstatusd/internal/tagdb"
)

// Repo is the diff-driving aggregate of spec.md §3: a git handle, the
// current Index model, the current TagDb and the last-seen HEAD oid;
// GetIndexStats builds a fresh Scoreboard on every call. One Repo is
// built per repository by internal/repocache and lives across many
// requests.
type Repo struct {
	git   *gitlib.Repo
	pool  *pool.Pool
	order strcmp.Order

	tagDb *tagdb.TagDb
	probe *mtimeprobe.Probe

	numThreads int

	mu            sync.Mutex
	idx           *index.Index
	cachedHeadOID string
	attrsPrimed   bool
}

// New builds a Repo around an already-open gitlib.Repo, starting the
// mtime probe asynchronously (spec.md §4.3). The probe's scratch directory
// is created under the .git directory, so the working-tree scan never
// reports it as untracked.
func New(git *gitlib.Repo, p *pool.Pool, numThreads int) *Repo {
	return &Repo{
		git:        git,
		pool:       p,
		order:      strcmp.New(git.CaseSensitive()),
		tagDb:      tagdb.New(git.GitDir(), p),
		probe:      mtimeprobe.Start(git.GitDir()),
		numThreads: numThreads,
	}
}

// Git exposes the underlying handle for callers that need HEAD/branch/tag
// lookups outside of GetIndexStats (the request dispatcher).
func (r *Repo) Git() *gitlib.Repo { return r.git }

// TagDb exposes the repository's tag database to the dispatcher.
func (r *Repo) TagDb() *tagdb.TagDb { return r.tagDb }

// Close blocks until the mtime probe resolves, mirroring the C++
// destructor's "join the worker before freeing memory it might still
// touch" contract from spec.md §4.3 — required here too since RepoCache
// eviction can drop a Repo whose probe hasn't settled yet.
func (r *Repo) Close() {
	r.probe.Wait()
}
