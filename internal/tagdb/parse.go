package tagdb

import (
	"bytes"
	"sort"
	"strings"
)

// parsePackedRefs reads and parses .git/packed-refs (spec.md §4.6). Lines
// are walked with the buffer treated as owned scratch space: a peeled
// packed-refs file lets every annotated tag's final commit oid be read off
// the "^"-continuation line with no external resolver call.
func parsePackedRefs(path string) (peeled []Tag, unpeeled []string, fullyPeeled bool, err error) {
	buf, err := mmapReadAll(path)
	if err != nil {
		return nil, nil, false, err
	}
	if buf == nil {
		return nil, nil, false, nil
	}

	lines := bytes.Split(buf, []byte("\n"))

	var pendingRef, pendingOID string
	havePending := false

	flushPending := func(peeledOID string) {
		if !havePending {
			return
		}
		if fullyPeeled {
			oid := pendingOID
			if peeledOID != "" {
				oid = peeledOID
			}
			peeled = append(peeled, Tag{Ref: pendingRef, OID: oid})
		} else {
			unpeeled = append(unpeeled, pendingRef)
		}
		havePending = false
	}

	for _, raw := range lines {
		line := bytes.TrimRight(raw, "\r")
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '#':
			if bytes.Contains(line, []byte("fully-peeled")) {
				fullyPeeled = true
			}
		case '^':
			flushPending(string(line[1:]))
		default:
			flushPending("")
			parts := bytes.SplitN(line, []byte(" "), 2)
			if len(parts) != 2 {
				continue
			}
			ref := string(parts[1])
			if !strings.HasPrefix(ref, "refs/tags/") {
				continue
			}
			pendingRef = ref
			pendingOID = string(parts[0])
			havePending = true
		}
	}
	flushPending("")

	sort.Strings(unpeeled)
	return peeled, unpeeled, fullyPeeled, nil
}
