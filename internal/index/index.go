// Package index implements the indexed directory model of spec.md §4.4: a
// directory forest built over the parsed git index that can, in parallel
// shards, propose a bounded set of paths that might be dirty without
// walking the entire working tree.
package index

import (
	"os"
	"strings"
	"time"

	"github.com/schmitthub/gitstatusd/internal/gitlib"
	"github.com/schmitthub/gitstatusd/internal/strcmp"
)

// DirStat is the snapshot of a directory's stat tuple the untracked-cache
// fast path compares against on the next scan.
type DirStat struct {
	ModTime time.Time
	Size    int64
	Ino     uint64
	Valid   bool
}

func statOf(fi os.FileInfo) DirStat {
	return DirStat{ModTime: fi.ModTime(), Size: fi.Size(), Ino: inodeOf(fi), Valid: true}
}

func (s DirStat) equal(other DirStat) bool {
	return s.Valid && other.Valid &&
		s.ModTime.Equal(other.ModTime) && s.Size == other.Size && s.Ino == other.Ino
}

// IndexDir is one node per directory that contains at least one tracked
// file (spec.md §3). Path includes the trailing "/", empty for the root.
type IndexDir struct {
	Path     string
	Basename string
	Depth    int

	Stat DirStat

	Files     []int // row indices into Index.Entries, in index order
	Subdirs   []string
	Unmatched []string
}

// Weight is the sharding weight of the node: 1 (for the node itself) plus
// its direct file and subdirectory counts, per spec.md §4.4.
func (d *IndexDir) Weight() int {
	return 1 + len(d.Files) + len(d.Subdirs)
}

// Index owns the IndexDir forest and the shard boundaries derived from it.
type Index struct {
	Entries []gitlib.IndexEntry
	Order   strcmp.Order

	// IndexMTime is the on-disk index file's own mtime at the moment the
	// entries were read (gitlib.Index.MTime). statDirty compares an entry's
	// recorded mtime against it to detect racy git: an entry that was
	// written in the same mtime tick as the index file itself can't be
	// trusted from a stat comparison alone.
	IndexMTime time.Time

	Dirs   []*IndexDir
	Splits []int // shard boundaries: indices into Dirs, len(Splits) shards
}

// stackNode is the mutable, in-progress form of an IndexDir kept on the
// build stack; it becomes an *IndexDir the moment it's popped.
type stackNode struct {
	dir *IndexDir
}

// Build parses entries (assumed already sorted in the git index's own
// on-disk order, which is a total order over paths) into a directory
// forest via the single stack-based pass spec.md §4.4 describes: O(N) in the
// number of entries (each entry's path is split into components once).
func Build(entries []gitlib.IndexEntry, order strcmp.Order, indexMTime time.Time) *Index {
	idx := &Index{Entries: entries, Order: order, IndexMTime: indexMTime}

	root := &IndexDir{Path: "", Basename: "", Depth: 0}
	stack := []stackNode{{dir: root}}
	var built []*IndexDir

	popTo := func(depth int) {
		for len(stack) > depth {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			order.SortStrings(n.dir.Subdirs)
			built = append(built, n.dir)
		}
	}

	for i, e := range entries {
		dirComps := splitDir(e.Path)

		common := 0
		for common < len(dirComps) && common+1 < len(stack) && stack[common+1].dir.Basename == dirComps[common] {
			common++
		}
		popTo(common + 1)

		for i := common; i < len(dirComps); i++ {
			parent := stack[len(stack)-1].dir
			parent.Subdirs = append(parent.Subdirs, dirComps[i])
			child := &IndexDir{
				Path:     parent.Path + dirComps[i] + "/",
				Basename: dirComps[i],
				Depth:    len(stack),
			}
			stack = append(stack, stackNode{dir: child})
		}

		top := stack[len(stack)-1].dir
		top.Files = append(top.Files, i)
	}
	popTo(0)

	// built is leaf-first (pop order); reverse for depth-first, root-first.
	idx.Dirs = make([]*IndexDir, len(built))
	for i, d := range built {
		idx.Dirs[len(built)-1-i] = d
	}
	return idx
}

// splitDir returns the directory path components of an index entry's path,
// excluding the file's own basename. "a/b/c.txt" -> ["a", "b"].
func splitDir(path string) []string {
	slash := strings.LastIndexByte(path, '/')
	if slash < 0 {
		return nil
	}
	return strings.Split(path[:slash], "/")
}

// minShardWeight is the floor spec.md §4.4 assigns to shard_weight so tiny
// indexes still get exactly one shard.
const minShardWeight = 512

// ComputeShards derives shard boundaries over Dirs, targeting numShards
// shards of roughly equal weight (weight = Σ (1+|files|+|subdirs|)),
// splitting only at whole-subtree boundaries so a shard is never a partial
// directory.
func (idx *Index) ComputeShards(numShards int) {
	if numShards < 1 {
		numShards = 1
	}
	if len(idx.Dirs) == 0 {
		idx.Splits = []int{0}
		return
	}

	totalWeight := 0
	for _, d := range idx.Dirs {
		totalWeight += d.Weight()
	}
	shardWeight := totalWeight / numShards
	if shardWeight < minShardWeight {
		shardWeight = minShardWeight
	}

	var splits []int
	accum := 0
	last := 0
	for i, d := range idx.Dirs {
		accum += d.Weight()
		if accum >= shardWeight && i+1 < len(idx.Dirs) {
			splits = append(splits, i+1)
			last = i + 1
			accum = 0
		}
	}
	_ = last

	bounds := make([]int, 0, len(splits)+1)
	bounds = append(bounds, 0)
	bounds = append(bounds, splits...)
	idx.Splits = bounds
}

// NumShards returns how many shards ComputeShards produced.
func (idx *Index) NumShards() int { return len(idx.Splits) }

// ShardRange returns the [start, end) IndexDir index range for shard i.
func (idx *Index) ShardRange(i int) (start, end int) {
	start = idx.Splits[i]
	if i+1 < len(idx.Splits) {
		end = idx.Splits[i+1]
	} else {
		end = len(idx.Dirs)
	}
	return start, end
}
