package gitlib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6/plumbing/object"
)

// NotifyCode is the three-valued short-circuit contract spec.md §4.5
// describes for the external diff library's per-delta callback.
type NotifyCode uint8

const (
	// DoNotInsert means the delta was accounted for but should not be kept
	// in a materialized diff (the core never materializes one); the scan
	// keeps iterating.
	DoNotInsert NotifyCode = 1 << iota
	// SkipType additionally tells the scan to stop enumerating deltas of
	// the kind just seen, because that counter has reached its cap while a
	// sibling counter this same callback could still increment has not.
	SkipType
	// AbortUser means no further delta of any kind can change the result.
	AbortUser
)

// DeltaStatus classifies one path's difference between two trees/sides of a
// comparison. It intentionally mirrors the vocabulary of the external
// library's delta status rather than the wire protocol's counter names —
// internal/diffdriver's notify callback is what maps DeltaStatus to a
// specific scoreboard counter.
type DeltaStatus int

const (
	StatusAdded DeltaStatus = iota
	StatusModified
	StatusDeleted
	StatusConflicted
	StatusUntracked
)

// Delta is one path difference handed to a NotifyFunc.
type Delta struct {
	Path   string
	Status DeltaStatus
}

// NotifyFunc classifies a Delta and returns the short-circuit directive.
type NotifyFunc func(Delta) NotifyCode

// TreeBlob is the subset of a tree entry the staged scan needs to detect a
// content change without reading blob bytes.
type TreeBlob struct {
	Hash string
	Mode uint32
}

// TreePaths flattens tree into a path -> TreeBlob map. Called once per
// GetIndexStats invocation that needs a staged scan (spec.md §4.5: "look up
// the commit, peel to tree"); the resulting map is read-only and shared
// across shards.
func TreePaths(tree *object.Tree) (map[string]TreeBlob, error) {
	out := make(map[string]TreeBlob, 256)
	iter := tree.Files()
	defer iter.Close()

	for {
		f, err := iter.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("walking tree: %w", err)
		}
		out[f.Name] = TreeBlob{Hash: f.Hash.String(), Mode: uint32(f.Mode)}
	}
	return out, nil
}

// DiffIndexToTree compares the given index entries (already restricted to
// one shard's path range by the caller) against treePaths and reports one
// Delta per difference: an index entry absent from the tree or with a
// different blob hash is StatusAdded/StatusModified; an index entry with a
// non-merged stage is StatusConflicted; a tree path with no matching index
// entry in range is StatusDeleted (staged removal).
func DiffIndexToTree(entries []IndexEntry, treePaths map[string]TreeBlob, notify NotifyFunc) error {
	seen := make(map[string]struct{}, len(entries))
	var skip deltaStatusSet

	for _, e := range entries {
		seen[e.Path] = struct{}{}

		var delta Delta
		delta.Path = e.Path
		switch {
		case e.Conflicted:
			delta.Status = StatusConflicted
		default:
			blob, ok := treePaths[e.Path]
			if !ok {
				delta.Status = StatusAdded
			} else if blobHashOf(e) != blob.Hash {
				delta.Status = StatusModified
			} else {
				continue // unchanged, not a delta at all
			}
		}

		if skip.has(delta.Status) {
			continue
		}
		code := notify(delta)
		if code&AbortUser != 0 {
			return errAbort
		}
		if code&SkipType != 0 {
			skip.add(delta.Status)
		}
	}

	if skip.has(StatusDeleted) {
		return nil
	}
	for path := range treePaths {
		if _, ok := seen[path]; ok {
			continue
		}
		code := notify(Delta{Path: path, Status: StatusDeleted})
		if code&AbortUser != 0 {
			return errAbort
		}
		if code&SkipType != 0 {
			return nil
		}
	}
	return nil
}

// deltaStatusSet tracks which DeltaStatus kinds a notify callback has asked
// the scan to stop enumerating (SkipType), per spec.md §4.5's short-circuit
// contract: once a counter hits its cap, deltas of its kind are skipped
// without another notify call, while other kinds keep scanning.
type deltaStatusSet uint8

func (s *deltaStatusSet) add(st DeltaStatus)     { *s |= 1 << uint(st) }
func (s deltaStatusSet) has(st DeltaStatus) bool { return s&(1<<uint(st)) != 0 }

// blobHashOf returns the blob hash the index records for e, which ReadIndex
// copies from go-git's index.Entry.Hash.
func blobHashOf(e IndexEntry) string {
	return e.blobHash
}

var errAbort = fmt.Errorf("diff aborted by notify callback")

// IsAbort reports whether err was returned because a NotifyFunc requested
// AbortUser, as opposed to a real I/O failure.
func IsAbort(err error) bool { return err == errAbort }

// DiffWorkdirToIndex compares candidate paths (already narrowed by
// internal/index.GetDirtyCandidates) against the current index, classifying
// each as untracked, deleted, or modified. root is the repository workdir.
func DiffWorkdirToIndex(root string, candidates []string, indexed map[string]struct{}, notify NotifyFunc) error {
	var skip deltaStatusSet
	for _, path := range candidates {
		abs := filepath.Join(root, path)
		info, statErr := os.Lstat(abs)
		_, inIndex := indexed[path]

		var delta Delta
		delta.Path = path
		switch {
		case statErr != nil && inIndex:
			delta.Status = StatusDeleted
		case statErr != nil:
			continue // vanished between candidate collection and diff; nothing to report
		case !inIndex:
			delta.Status = StatusUntracked
		default:
			delta.Status = StatusModified
		}
		_ = info

		if skip.has(delta.Status) {
			continue
		}
		code := notify(delta)
		if code&AbortUser != 0 {
			return errAbort
		}
		if code&SkipType != 0 {
			skip.add(delta.Status)
		}
	}
	return nil
}
