package gitlib

// PrimeAttributes issues one dummy attribute-style lookup against the
// working tree, matching spec.md §4.5's "prime the attribute cache with one
// dummy attribute query" note about the external library's lazy,
// not-thread-safe-on-first-use cache. go-git resolves .gitattributes lazily
// per Worktree; touching it once here, synchronously, before any pool
// worker can race the same lazy init keeps the same defensive property.
func (r *Repo) PrimeAttributes() error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	_, _ = wt.Filesystem.Stat(".gitattributes")
	return nil
}
