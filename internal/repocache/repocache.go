// Package repocache implements spec.md §4.8's RepoCache: an LRU map from a
// repository's .git directory to a live diffdriver.Repo handle, with
// TTL-based eviction. Kept as a hand-rolled container/list + map rather than
// a general-purpose cache library (see DESIGN.md) since the eviction policy
// is "older than cutoff", not "over capacity" — the two don't share a shape.
package repocache

import (
	"container/list"
	"sync"

	"github.com/google/uuid"
	"github.com/schmitthub/gitstatusd/internal/diffdriver"
	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/logger"
	"github.com/schmitthub/gitstatusd/internal/pool"
)

// entry pairs a live Repo with its LRU list node so Open can splice the node
// to the front on every hit without a second map lookup. handleID is a
// synthesized identifier scoped to this entry's lifetime in the cache, used
// only to correlate this handle's open/evict log lines across requests —
// it never crosses the wire.
type entry struct {
	gitDir   string
	repo     *diffdriver.Repo
	lastUsed int64
	handleID string
}

// Cache is the LRU map described by spec.md §4.8, keyed by .git directory.
// nowFunc is injectable so tests can control TTL eviction deterministically.
type Cache struct {
	pool       *pool.Pool
	numThreads int
	nowFunc    func() int64

	mu      sync.Mutex
	entries map[string]*list.Element // .git dir -> *entry, list-ordered most-recently-used first
	order   *list.List
}

// New builds a Cache that hands out diffdriver.Repo instances backed by p,
// each running numThreads worker-visible shards.
func New(p *pool.Pool, numThreads int, nowFunc func() int64) *Cache {
	return &Cache{
		pool:       p,
		numThreads: numThreads,
		nowFunc:    nowFunc,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Open discovers the repository containing dir, returning a cached Repo on
// hit (after touching its LRU position) or constructing and caching a new
// one on miss. The gitlib.Repo is opened synchronously so the object and
// reference databases are primed before any pool task might touch them.
func (c *Cache) Open(dir string) (*diffdriver.Repo, error) {
	git, err := gitlib.Discover(dir)
	if err != nil {
		return nil, err
	}
	gitDir := git.GitDir()

	c.mu.Lock()
	if el, ok := c.entries[gitDir]; ok {
		e := el.Value.(*entry)
		e.lastUsed = c.nowFunc()
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return e.repo, nil
	}
	c.mu.Unlock()

	repo := diffdriver.New(git, c.pool, c.numThreads)

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have raced us to the same repo between the
	// unlock above and here; the sequential request loop makes this
	// vanishingly unlikely in practice, but favor the existing entry if so.
	if el, ok := c.entries[gitDir]; ok {
		e := el.Value.(*entry)
		e.lastUsed = c.nowFunc()
		c.order.MoveToFront(el)
		repo.Close()
		return e.repo, nil
	}

	e := &entry{gitDir: gitDir, repo: repo, lastUsed: c.nowFunc(), handleID: uuid.NewString()}
	el := c.order.PushFront(e)
	c.entries[gitDir] = el
	logger.Debug().Str("handle_id", e.handleID).Str("git_dir", gitDir).Msg("opened repository handle")
	return repo, nil
}

// Free evicts every entry whose last use precedes cutoff, closing each
// evicted Repo (which joins its mtime-probe worker before returning).
func (c *Cache) Free(cutoff int64) {
	type freed struct {
		repo     *diffdriver.Repo
		handleID string
		gitDir   string
	}
	var evicted []freed

	c.mu.Lock()
	for el := c.order.Back(); el != nil; {
		e := el.Value.(*entry)
		if e.lastUsed >= cutoff {
			break
		}
		prev := el.Prev()
		c.order.Remove(el)
		delete(c.entries, e.gitDir)
		evicted = append(evicted, freed{repo: e.repo, handleID: e.handleID, gitDir: e.gitDir})
		el = prev
	}
	c.mu.Unlock()

	for _, f := range evicted {
		f.repo.Close()
		logger.Debug().Str("handle_id", f.handleID).Str("git_dir", f.gitDir).Msg("evicted repository handle")
	}
}

// Len reports the number of cached repositories, used by tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
