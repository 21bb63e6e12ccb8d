package tagdb

import (
	"sort"
	"strings"
)

// Resolver dereferences a ref name down to the commit oid it points at,
// following symbolic refs and peeling annotated tags. internal/gitlib.Repo
// implements this.
type Resolver interface {
	ResolveRefToCommit(refName string) (oid string, ok bool, err error)
}

// TagForCommit returns the lexicographically largest tag name pointing at
// oid, or "" if none does (spec.md §4.6 lookup algorithm and §8 scenario
// S6). Loose tags always take precedence in the comparison pool since
// they're authoritative regardless of packed-refs staleness: a packed-refs
// entry whose ref also exists as a loose tag file is not considered.
func (db *TagDb) TagForCommit(oid string, resolver Resolver) (string, error) {
	best := ""

	looseRefs, err := looseTagFiles(db.gitDir)
	if err != nil {
		return "", err
	}
	loose := make(map[string]bool, len(looseRefs))
	for _, ref := range looseRefs {
		loose[ref] = true
		got, ok, err := resolver.ResolveRefToCommit(ref)
		if err != nil {
			continue
		}
		if ok && got == oid {
			if name := shortTagName(ref); name > best {
				best = name
			}
		}
	}

	db.waitForSort()

	db.mu.Lock()
	fullyPeeled := db.fullyPeeled
	peeled := db.peeledTags
	unpeeled := db.unpeeledRefs
	db.mu.Unlock()

	if fullyPeeled {
		lo := sort.Search(len(peeled), func(i int) bool { return peeled[i].OID >= oid })
		for i := lo; i < len(peeled) && peeled[i].OID == oid; i++ {
			if loose[peeled[i].Ref] {
				continue
			}
			if name := shortTagName(peeled[i].Ref); name > best {
				best = name
			}
		}
	} else {
		for i := len(unpeeled) - 1; i >= 0; i-- {
			ref := unpeeled[i]
			if loose[ref] {
				continue
			}
			got, ok, err := resolver.ResolveRefToCommit(ref)
			if err != nil {
				continue
			}
			if ok && got == oid {
				if name := shortTagName(ref); name > best {
					best = name
				}
				break
			}
		}
	}

	return best, nil
}

func shortTagName(ref string) string {
	return strings.TrimPrefix(ref, "refs/tags/")
}
