package gitlib

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"
)

// maxRefHops bounds annotated-tag peeling (spec.md §4.6: "bounded to 10
// hops"). Symbolic refs are followed by go-git's own Reference resolution.
const maxRefHops = 10

// ResolveRefToCommit dereferences refName (a branch, lightweight tag, or
// annotated tag ref) down to the commit oid it ultimately points at,
// following symbolic refs through go-git and peeling annotated tag objects
// for at most maxRefHops hops. Used by internal/tagdb to confirm loose tags and unpeeled
// packed-refs entries against a queried commit.
func (r *Repo) ResolveRefToCommit(refName string) (oid string, ok bool, err error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName(refName), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolving ref %s: %w", refName, err)
	}

	hash := ref.Hash()
	for hop := 0; hop < maxRefHops; hop++ {
		if _, err := r.repo.CommitObject(hash); err == nil {
			return hash.String(), true, nil
		}
		tag, err := r.repo.TagObject(hash)
		if err != nil {
			return "", false, nil
		}
		commit, err := tag.Commit()
		if err == nil {
			return commit.Hash.String(), true, nil
		}
		hash = tag.Target
	}
	return "", false, nil
}
