package index

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schmitthub/gitstatusd/internal/arena"
	"github.com/schmitthub/gitstatusd/internal/dirlist"
	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/mtimeprobe"
	"github.com/schmitthub/gitstatusd/internal/pool"
)

// GetDirtyCandidates fans the shard-by-shard scan out across p, merges the
// per-shard candidate lists, and returns them sorted under idx.Order
// (spec.md §4.4: "the union of per-shard candidates is sorted ... before
// being returned").
func (idx *Index) GetDirtyCandidates(root string, untrackedCache mtimeprobe.Tribool, p *pool.Pool) ([]string, error) {
	n := idx.NumShards()
	results := make([][]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		p.Schedule(func() {
			defer wg.Done()
			start, end := idx.ShardRange(i)
			cands, err := idx.scanShard(root, start, end, untrackedCache)
			results[i] = cands
			errs[i] = err
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var all []string
	for _, r := range results {
		all = append(all, r...)
	}
	idx.Order.SortStrings(all)
	return all, nil
}

func (idx *Index) scanShard(root string, start, end int, untrackedCache mtimeprobe.Tribool) ([]string, error) {
	var out []string
	for i := start; i < end; i++ {
		d := idx.Dirs[i]
		absDir := filepath.Join(root, d.Path)

		if untrackedCache == mtimeprobe.True && d.Stat.Valid && len(d.Unmatched) == 0 {
			if fi, err := os.Stat(absDir); err == nil && d.Stat.equal(statOf(fi)) {
				out = append(out, idx.fastFileSweep(d, absDir)...)
				continue
			}
		}

		cands, err := idx.fullDirScan(d, absDir)
		if err != nil {
			return nil, err
		}
		out = append(out, cands...)
	}
	return out, nil
}

// fastFileSweep implements the untracked-cache fast path (spec.md §4.4
// step 1): the directory's own mtime hasn't moved, so only stat each known
// file, plus re-emit paths this directory already flagged unmatched on the
// previous scan.
func (idx *Index) fastFileSweep(d *IndexDir, absDir string) []string {
	var out []string
	for _, fi := range d.Files {
		e := idx.Entries[fi]
		base := basename(e.Path)
		if statDirty(e, filepath.Join(absDir, base), idx.IndexMTime) {
			out = append(out, e.Path)
		}
	}
	out = append(out, d.Unmatched...)
	return out
}

type knownChild struct {
	name    string
	isFile  bool
	fileIdx int
}

// fullDirScan implements spec.md §4.4 step 2: list the directory and
// three-way merge its sorted entries against the sorted file/subdir lists
// already recorded on d. On a listing failure it degrades to "every known
// entry in this directory is a candidate" per spec.md §7.
func (idx *Index) fullDirScan(d *IndexDir, absDir string) ([]string, error) {
	a := arena.New()
	entries, err := dirlist.List(absDir, idx.Order, a)
	if err != nil {
		var cands []string
		for _, fi := range d.Files {
			cands = append(cands, idx.Entries[fi].Path)
		}
		for _, sd := range d.Subdirs {
			cands = append(cands, d.Path+sd+"/")
		}
		d.Unmatched = cands
		return cands, nil
	}

	known := make([]knownChild, 0, len(d.Files)+len(d.Subdirs))
	for _, fi := range d.Files {
		known = append(known, knownChild{name: basename(idx.Entries[fi].Path), isFile: true, fileIdx: fi})
	}
	for _, sd := range d.Subdirs {
		known = append(known, knownChild{name: sd})
	}
	sortKnown(known, idx.Order)

	var candidates []string
	ki, di := 0, 0
	for ki < len(known) && di < len(entries) {
		kn := known[ki]
		de := entries[di]
		if d.Path == "" && de.Name == ".git" {
			di++
			continue
		}

		switch {
		case idx.Order.Less(kn.name, de.Name):
			if kn.isFile {
				candidates = append(candidates, idx.Entries[kn.fileIdx].Path)
			}
			ki++
		case idx.Order.Less(de.Name, kn.name):
			cand := de.Name
			if de.IsDir {
				cand += "/"
			}
			candidates = append(candidates, d.Path+cand)
			di++
		default:
			if kn.isFile {
				e := idx.Entries[kn.fileIdx]
				if statDirty(e, filepath.Join(absDir, de.Name), idx.IndexMTime) {
					candidates = append(candidates, e.Path)
				}
			} else if !de.IsDir {
				candidates = append(candidates, d.Path+de.Name)
			}
			ki++
			di++
		}
	}
	for ; ki < len(known); ki++ {
		if known[ki].isFile {
			candidates = append(candidates, idx.Entries[known[ki].fileIdx].Path)
		}
	}
	for ; di < len(entries); di++ {
		de := entries[di]
		if d.Path == "" && de.Name == ".git" {
			continue
		}
		cand := de.Name
		if de.IsDir {
			cand += "/"
		}
		candidates = append(candidates, d.Path+cand)
	}

	if fi, statErr := os.Stat(absDir); statErr == nil {
		d.Stat = statOf(fi)
	}
	d.Unmatched = candidates
	return candidates, nil
}

func sortKnown(known []knownChild, order interface {
	Less(a, b string) bool
}) {
	// insertion sort is fine here: |known| is a directory's own children,
	// bounded in practice, and Build already handed us Subdirs pre-sorted —
	// only interleaving with Files needs any reordering at all.
	for i := 1; i < len(known); i++ {
		for j := i; j > 0 && order.Less(known[j].name, known[j-1].name); j-- {
			known[j], known[j-1] = known[j-1], known[j]
		}
	}
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// modeTypeMask isolates the file-type bits of a mode, ignoring permission
// bits that git itself doesn't track precisely enough to compare (its index
// only stores a coarse executable/non-executable distinction).
const modeTypeMask = 0170000

// statDirty reports whether the on-disk file at abs no longer matches the
// index entry's recorded stat tuple, per spec.md §4.4's field list (mtime,
// ino, mode & filter, gid, size). The gid is not compared; the other four
// fields are, and ino and mode only when the entry records them (non-zero).
// A stat failure (file removed) counts as
// dirty — false positives here only cost an extra diff comparison
// downstream, never a missed dirty file.
//
// indexMTime is the index file's own mtime at read time. An entry recorded
// with a mtime no older than the index file itself is racy git: the file
// could have been written in the same filesystem-mtime tick the index was
// written in, after git captured its stat tuple, so the stat comparison
// below can't be trusted to catch a real change. Such an entry is always
// reported dirty rather than risk a false negative.
func statDirty(e gitlib.IndexEntry, abs string, indexMTime time.Time) bool {
	if !indexMTime.IsZero() && !e.ModTime.Before(indexMTime) {
		return true
	}
	fi, err := os.Lstat(abs)
	if err != nil {
		return true
	}
	if !fi.ModTime().Equal(e.ModTime) {
		return true
	}
	if fi.Size() != e.Size {
		return true
	}
	if ino := inodeOf(fi); ino != 0 && e.Ino != 0 && uint64(e.Ino) != ino {
		return true
	}
	// os.FileMode does not carry the unix S_IFMT bits git records, so the
	// on-disk type is translated into git's encoding before comparing.
	var diskType uint32
	switch {
	case fi.Mode().IsRegular():
		diskType = 0100000
	case fi.Mode()&os.ModeSymlink != 0:
		diskType = 0120000
	case fi.IsDir():
		diskType = 0160000 // a directory can only match a gitlink entry
	}
	if e.Mode != 0 && diskType != e.Mode&modeTypeMask {
		return true
	}
	return false
}
