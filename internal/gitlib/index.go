package gitlib

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	gitindex "github.com/go-git/go-git/v6/plumbing/format/index"
)

// IndexEntry mirrors the fields spec.md §3 says the external git library
// yields per path. RowIndex is the entry's position in the index's own
// on-disk ordering, preserved so internal/index can rebuild IndexDir.files
// in stable order without re-sorting.
type IndexEntry struct {
	Path        string
	ModTime     time.Time
	Ino         uint32
	Mode        uint32
	GID         uint32
	Size        int64
	IntentToAdd bool
	Conflicted  bool
	RowIndex    int

	blobHash string
}

// Index is a read-only snapshot of the repository's index file at the
// moment ReadIndex last (re)loaded it.
type Index struct {
	Entries []IndexEntry

	// MTime is the on-disk index file's own modification time, read with
	// the same filesystem mtime resolution as any index entry's ModTime.
	// internal/index needs it to detect racy git: an entry whose mtime
	// falls within the index file's own mtime resolution window can't be
	// trusted from stat comparison alone (spec.md glossary, "racy-git").
	MTime time.Time
}

// ReadIndex reads the index and reports whether its content differs from
// the last read (by entry count and per-entry mtime/size — a cheap proxy
// for the file-level change detection spec.md §4.5 asks of the external
// library). Passing force=true always re-reads and always reports changed.
func (r *Repo) ReadIndex(force bool) (idx *Index, changed bool, err error) {
	raw, err := r.repo.Storer.Index()
	if err != nil {
		return nil, false, fmt.Errorf("reading index: %w", err)
	}

	var indexMTime time.Time
	if fi, statErr := os.Stat(filepath.Join(r.gitDir, "index")); statErr == nil {
		indexMTime = fi.ModTime()
	}

	entries := make([]IndexEntry, len(raw.Entries))
	for i, e := range raw.Entries {
		entries[i] = IndexEntry{
			Path:        e.Name,
			ModTime:     e.ModifiedAt,
			Ino:         e.Inode,
			Mode:        uint32(e.Mode),
			GID:         e.GID,
			Size:        int64(e.Size),
			IntentToAdd: e.IntentToAdd,
			Conflicted:  e.Stage != gitindex.Merged,
			RowIndex:    i,
			blobHash:    e.Hash.String(),
		}
	}

	next := &Index{Entries: entries, MTime: indexMTime}
	changed = force || r.lastIndexSig != indexSignature(entries)
	r.lastIndexSig = indexSignature(entries)
	return next, changed, nil
}

// indexSignature is a cheap fingerprint (not a cryptographic hash) used only
// to decide whether the in-memory IndexDir forest needs rebuilding.
func indexSignature(entries []IndexEntry) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	const prime uint64 = 1099511628211
	mix := func(v uint64) {
		h ^= v
		h *= prime
	}
	mix(uint64(len(entries)))
	for _, e := range entries {
		mix(uint64(e.ModTime.UnixNano()))
		mix(uint64(e.Size))
		mix(uint64(len(e.Path)))
	}
	return h
}
