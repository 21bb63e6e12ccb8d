package gitlib

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// HeadInfo bundles everything the response's fields 2-6 need from HEAD and
// its upstream, resolved in one pass so callers don't re-walk refs per field.
type HeadInfo struct {
	OID                string
	LocalBranch        string
	UpstreamBranch     string
	UpstreamRemoteName string
	UpstreamRemoteURL  string
}

// Head resolves HEAD, its short branch name (empty if detached), and the
// upstream branch/remote/URL triple if the branch has one configured.
func (r *Repo) Head() (HeadInfo, error) {
	var info HeadInfo

	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Unborn HEAD: no commits yet, not an error condition.
			return info, nil
		}
		return info, fmt.Errorf("resolving HEAD: %w", err)
	}
	info.OID = resolveOID(head.Hash())

	if head.Name() == plumbing.HEAD {
		return info, nil // detached
	}
	info.LocalBranch = head.Name().Short()

	cfg, err := r.repo.Config()
	if err != nil {
		return info, fmt.Errorf("reading config: %w", err)
	}
	branchCfg, ok := cfg.Branches[info.LocalBranch]
	if !ok || branchCfg.Merge == "" {
		return info, nil
	}
	info.UpstreamBranch = branchCfg.Merge.Short()
	info.UpstreamRemoteName = branchCfg.Remote
	if remoteCfg, ok := cfg.Remotes[branchCfg.Remote]; ok && len(remoteCfg.URLs) > 0 {
		info.UpstreamRemoteURL = remoteCfg.URLs[0]
	}
	return info, nil
}

// UpstreamOID resolves the OID of local branch's configured upstream ref, or
// "" if there is none (used by AheadBehind).
func (r *Repo) UpstreamOID(localBranch string) (string, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return "", fmt.Errorf("reading config: %w", err)
	}
	branchCfg, ok := cfg.Branches[localBranch]
	if !ok || branchCfg.Merge == "" {
		return "", nil
	}
	remoteRef := plumbing.NewRemoteReferenceName(branchCfg.Remote, branchCfg.Merge.Short())
	ref, err := r.repo.Reference(remoteRef, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolving upstream %s: %w", remoteRef, err)
	}
	return resolveOID(ref.Hash()), nil
}

// aheadBehindCap bounds how far back the ancestor walk goes so a very long,
// divergent history can't turn one status request into a full repo scan.
const aheadBehindCap = 10000

// AheadBehind counts commits reachable from headOID but not upstreamOID
// (ahead) and vice versa (behind), per spec.md §4.9's "two revwalks"
// characterization of the operation.
func (r *Repo) AheadBehind(headOID, upstreamOID string) (ahead, behind int, err error) {
	if headOID == "" || upstreamOID == "" || headOID == upstreamOID {
		return 0, 0, nil
	}

	headSet, err := r.ancestorSet(headOID)
	if err != nil {
		return 0, 0, err
	}
	upstreamSet, err := r.ancestorSet(upstreamOID)
	if err != nil {
		return 0, 0, err
	}

	for h := range headSet {
		if _, common := upstreamSet[h]; !common {
			ahead++
		}
	}
	for h := range upstreamSet {
		if _, common := headSet[h]; !common {
			behind++
		}
	}
	return ahead, behind, nil
}

// ancestorSet walks the commit graph reachable from oid (inclusive) with a
// breadth-first revwalk, capped at aheadBehindCap commits.
func (r *Repo) ancestorSet(oid string) (map[string]struct{}, error) {
	hash := plumbing.NewHash(oid)
	start, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("looking up commit %s: %w", oid, err)
	}

	set := make(map[string]struct{}, 64)
	queue := []*object.Commit{start}
	set[start.Hash.String()] = struct{}{}

	for len(queue) > 0 && len(set) < aheadBehindCap {
		c := queue[0]
		queue = queue[1:]

		err := c.Parents().ForEach(func(p *object.Commit) error {
			key := p.Hash.String()
			if _, seen := set[key]; seen {
				return nil
			}
			set[key] = struct{}{}
			queue = append(queue, p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking parents of %s: %w", c.Hash, err)
		}
	}
	return set, nil
}

// CommitTree resolves a commit oid to its root tree, used by the staged
// scan's index-vs-tree comparison.
func (r *Repo) CommitTree(oid string) (*object.Tree, error) {
	hash := plumbing.NewHash(oid)
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("looking up commit %s: %w", oid, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("resolving tree of %s: %w", oid, err)
	}
	return tree, nil
}

// TreeEntry looks up a single path in tree, returning ok=false if it does
// not exist (deleted-from-index-but-present-in-tree becomes a staged
// deletion in the caller's classification).
func TreeEntry(tree *object.Tree, path string) (hash string, mode uint32, ok bool) {
	f, err := tree.File(path)
	if err != nil {
		return "", 0, false
	}
	return f.Hash.String(), uint32(f.Mode), true
}
