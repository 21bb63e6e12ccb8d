// Package protocol implements the daemon's request/response wire format
// (spec.md §6): field separator 0x1F, record separator 0x1E, one record per
// request and one record per response, both directions on the process's
// stdin/stdout.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// FS separates fields within a record.
	FS = 0x1F
	// RS terminates a record.
	RS = 0x1E
)

// Request is one incoming line: an opaque correlation id and the absolute
// directory whose status is being asked about.
type Request struct {
	ID  string
	Dir string
}

// RepoAction names the in-progress repository operation reported in field 7.
type RepoAction string

const (
	ActionNone       RepoAction = ""
	ActionMerge      RepoAction = "merge"
	ActionRevert     RepoAction = "revert"
	ActionRevertSeq  RepoAction = "revert-seq"
	ActionCherry     RepoAction = "cherry"
	ActionCherrySeq  RepoAction = "cherry-seq"
	ActionBisect     RepoAction = "bisect"
	ActionRebase     RepoAction = "rebase"
	ActionRebaseI    RepoAction = "rebase-i"
	ActionRebaseM    RepoAction = "rebase-m"
	ActionAm         RepoAction = "am"
	ActionAmOrRebase RepoAction = "am/rebase"
)

// Success carries the 18 fields of a successful response, in field order.
type Success struct {
	Workdir            string
	HeadOID            string
	LocalBranch        string
	UpstreamBranch     string
	UpstreamRemoteName string
	UpstreamRemoteURL  string
	Action             RepoAction
	IndexSize          int
	NumStaged          int
	NumUnstaged        int
	NumConflicted      int
	NumUntracked       int
	CommitsAhead       int
	CommitsBehind      int
	NumStashes         int
	TagName            string
	NumUnstagedDeleted int
	Reserved           string
}

// Response is either a not-a-repo zero-record or a Success record.
type Response struct {
	ID      string
	IsRepo  bool
	Success Success
}

// sanitize replaces bytes outside the printable ASCII range [0x20, 0x7E]
// with '?', guaranteeing FS and RS bytes never appear inside a field.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7E {
			b.WriteByte('?')
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Encode renders r as a wire record, terminated by RS but not including it
// in the returned string's meaning (callers write the returned bytes as-is,
// which already end in RS).
func Encode(r Response) []byte {
	fields := []string{sanitize(r.ID)}
	if !r.IsRepo {
		fields = append(fields, "0")
	} else {
		s := r.Success
		fields = append(fields, "1",
			sanitize(s.Workdir),
			sanitize(s.HeadOID),
			sanitize(s.LocalBranch),
			sanitize(s.UpstreamBranch),
			sanitize(s.UpstreamRemoteName),
			sanitize(s.UpstreamRemoteURL),
			sanitize(string(s.Action)),
			strconv.Itoa(s.IndexSize),
			strconv.Itoa(s.NumStaged),
			strconv.Itoa(s.NumUnstaged),
			strconv.Itoa(s.NumConflicted),
			strconv.Itoa(s.NumUntracked),
			strconv.Itoa(s.CommitsAhead),
			strconv.Itoa(s.CommitsBehind),
			strconv.Itoa(s.NumStashes),
			sanitize(s.TagName),
			strconv.Itoa(s.NumUnstagedDeleted),
			sanitize(s.Reserved),
		)
	}

	buf := make([]byte, 0, 64)
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, FS)
		}
		buf = append(buf, f...)
	}
	buf = append(buf, RS)
	return buf
}

// Reader reads requests off an io.Reader delimited by RS.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for request framing.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// ReadRequest blocks for the next complete record and parses it as a
// Request. Returns io.EOF when the input stream closes cleanly.
func (rd *Reader) ReadRequest() (Request, error) {
	record, err := rd.br.ReadString(RS)
	if err != nil {
		if err == io.EOF && len(record) == 0 {
			return Request{}, io.EOF
		}
		if err != io.EOF {
			return Request{}, fmt.Errorf("reading request record: %w", err)
		}
	}
	record = strings.TrimSuffix(record, string(rune(RS)))
	fields := strings.Split(record, string(rune(FS)))
	if len(fields) != 2 {
		return Request{}, fmt.Errorf("malformed request record: expected 2 fields, got %d", len(fields))
	}
	return Request{ID: fields[0], Dir: fields[1]}, nil
}

// Writer writes responses to an io.Writer, flushing after every record so a
// request produces observable output immediately (the daemon's one
// consumer, an interactive shell prompt, blocks on exactly this record).
type Writer struct {
	w  io.Writer
	bw *bufio.Writer
}

// NewWriter wraps w for response framing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, bw: bufio.NewWriterSize(w, 4096)}
}

// WriteResponse encodes and flushes r.
func (wr *Writer) WriteResponse(r Response) error {
	if _, err := wr.bw.Write(Encode(r)); err != nil {
		return fmt.Errorf("writing response record: %w", err)
	}
	return wr.bw.Flush()
}
