// Package dirlist enumerates directory entries using the fastest primitive
// the running kernel offers, returning them sorted per the repository's
// active string order (internal/strcmp). On Linux, entries are read straight
// out of getdents64 records so the file type (regular file vs directory) is
// known without a per-entry stat call; everywhere else a portable
// os.File.ReadDir loop is used instead.
package dirlist

import (
	"os"
	"sort"

	"github.com/schmitthub/gitstatusd/internal/arena"
	"github.com/schmitthub/gitstatusd/internal/strcmp"
)

// Entry is one directory member, excluding "." and "..".
type Entry struct {
	// Name is the basename, as returned by Arena.StrDup.
	Name string
	// IsDir reports whether the kernel told us this entry is a directory
	// (DT_DIR). Entries of unknown type (DT_UNKNOWN, some filesystems) are
	// reported with IsDir=false and the caller falls back to lstat if it
	// cares about the distinction.
	IsDir bool
}

// List returns the entries of dir, excluding "." and "..", sorted under
// order. Entries are appended to a. If the directory cannot be opened or
// read, the error is returned and the caller degrades that directory's scan
// to "every known entry is a dirty candidate" per spec §4.2.
func List(dir string, order strcmp.Order, a *arena.Arena) ([]Entry, error) {
	entries, err := listRaw(dir)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Name: a.StrDup(e.Name), IsDir: e.IsDir}
	}
	sort.Slice(out, func(i, j int) bool { return order.Less(out[i].Name, out[j].Name) })
	return out, nil
}

type rawEntry struct {
	Name  string
	IsDir bool
}

// portableList is the fallback used by non-Linux platforms and by Linux
// whenever the raw getdents64 path errors out for a reason other than the
// directory being unreadable (e.g. an unsupported filesystem).
func portableList(dir string) ([]rawEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dirents, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	out := make([]rawEntry, 0, len(dirents))
	for _, d := range dirents {
		out = append(out, rawEntry{Name: d.Name(), IsDir: d.IsDir()})
	}
	return out, nil
}
