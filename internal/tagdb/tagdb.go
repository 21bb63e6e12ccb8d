// Package tagdb implements the packed-refs tag database of spec.md §4.6: a
// memory-mapped, statted cache of .git/packed-refs plus the loose tags
// under .git/refs/tags/, with a background sort of the peeled-tag table so
// TagForCommit doesn't pay sort cost on the request's critical path.
package tagdb

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/schmitthub/gitstatusd/internal/pool"
)

// Tag is (ref_name, commit_oid), ordered by commit_oid for the peeled table
// binary search (spec.md §3).
type Tag struct {
	Ref string
	OID string
}

type packStat struct {
	modTime int64
	size    int64
	ino     uint64
	valid   bool
}

// TagDb answers "which tag points at this commit?" for one repository.
type TagDb struct {
	gitDir string
	pool   *pool.Pool

	mu          sync.Mutex
	cv          *sync.Cond
	sorting     bool
	fullyPeeled bool
	lastStat    packStat

	peeledTags   []Tag
	unpeeledRefs []string // sorted case-sensitively, per spec.md §4.6
}

// New creates an empty TagDb bound to gitDir; call Refresh before the first
// query to load packed-refs.
func New(gitDir string, p *pool.Pool) *TagDb {
	db := &TagDb{gitDir: gitDir, pool: p}
	db.cv = sync.NewCond(&db.mu)
	return db
}

// Refresh stats packed-refs and reloads it if the (mtim, size, ino) triple
// changed since the last call (spec.md §4.6). It is safe, and cheap, to
// call before every TagForCommit.
func (db *TagDb) Refresh() error {
	path := filepath.Join(db.gitDir, "packed-refs")

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			db.mu.Lock()
			db.peeledTags = nil
			db.unpeeledRefs = nil
			db.lastStat = packStat{}
			db.mu.Unlock()
			return nil
		}
		return err
	}
	cur := statOf(fi)

	db.mu.Lock()
	unchanged := db.lastStat.valid && db.lastStat == cur
	db.mu.Unlock()
	if unchanged {
		return nil
	}

	// Read once, then re-stat: if the file changed again mid-read, retry
	// (spec.md §4.6) — packed-refs is rewritten atomically by git but a
	// concurrent `git pack-refs` can race an in-progress read.
	for attempt := 0; attempt < 3; attempt++ {
		peeled, unpeeled, fullyPeeled, err := parsePackedRefs(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		fi2, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		after := statOf(fi2)
		if after != cur {
			cur = after
			continue
		}

		db.mu.Lock()
		db.peeledTags = peeled
		db.unpeeledRefs = unpeeled
		db.fullyPeeled = fullyPeeled
		db.lastStat = cur
		db.sorting = true
		db.mu.Unlock()

		db.pool.Schedule(db.backgroundSort)
		return nil
	}
	return nil
}

// backgroundSort sorts peeledTags by commit oid so TagForCommit can binary
// search it; runs on the shared pool, overlapping the diff scan.
func (db *TagDb) backgroundSort() {
	db.mu.Lock()
	tags := db.peeledTags
	db.mu.Unlock()

	sort.Slice(tags, func(i, j int) bool { return tags[i].OID < tags[j].OID })

	db.mu.Lock()
	db.sorting = false
	db.cv.Broadcast()
	db.mu.Unlock()
}

// waitForSort blocks until any in-flight background sort completes.
func (db *TagDb) waitForSort() {
	db.mu.Lock()
	for db.sorting {
		db.cv.Wait()
	}
	db.mu.Unlock()
}

func statOf(fi os.FileInfo) packStat {
	return packStat{
		modTime: fi.ModTime().UnixNano(),
		size:    fi.Size(),
		ino:     inodeOf(fi),
		valid:   true,
	}
}

// looseTagFiles walks .git/refs/tags recursively and returns each regular
// file's ref name ("refs/tags/<relpath>"), matching spec.md §4.6's "every
// regular file under .git/refs/tags/".
func looseTagFiles(gitDir string) ([]string, error) {
	root := filepath.Join(gitDir, "refs", "tags")
	var refs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		refs = append(refs, "refs/tags/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return refs, nil
}

// mmapReadAll copy-on-write maps path and returns a heap copy of its bytes.
// The parser splits that copy into lines without modifying it, and the file
// itself is never touched.
func mmapReadAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, nil
	}

	m, err := mmap.Map(f, mmap.COPY, 0)
	if err != nil {
		// Fall back to a plain read for filesystems that reject mmap
		// (network mounts, some CI sandboxes).
		return plainReadAll(f)
	}
	buf := make([]byte, len(m))
	copy(buf, m)
	_ = m.Unmap()
	return buf, nil
}

func plainReadAll(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var buf []byte
	scanner := bufio.NewReader(f)
	chunk := make([]byte, 64*1024)
	for {
		n, err := scanner.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}
