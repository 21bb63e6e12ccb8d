package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeZeroRecord(t *testing.T) {
	got := Encode(Response{ID: "r", IsRepo: false})
	require.Equal(t, "r\x1f0\x1e", string(got))
}

func TestEncodeSuccessRecordFieldOrder(t *testing.T) {
	resp := Response{
		ID:     "r",
		IsRepo: true,
		Success: Success{
			Workdir:   "/abs",
			HeadOID:   "",
			IndexSize: 0,
		},
	}
	got := string(Encode(resp))
	require.Equal(t, "r\x1f1\x1f/abs\x1f\x1f\x1f\x1f\x1f\x1f\x1f0\x1f0\x1f0\x1f0\x1f0\x1f0\x1f0\x1f0\x1f\x1f0\x1f\x1e", got)
}

func TestEncodeSanitizesControlAndHighBytes(t *testing.T) {
	resp := Response{
		ID:     "r",
		IsRepo: true,
		Success: Success{
			Workdir: "bad\x01name\x1e\x1f\x7f",
		},
	}
	got := string(Encode(resp))
	require.NotContains(t, strings.TrimSuffix(got, "\x1e"), "\x1e")
	fields := strings.Split(strings.TrimSuffix(got, "\x1e"), "\x1f")
	require.Equal(t, "bad?name???", fields[2])
}

func TestReaderReadsMultipleRequests(t *testing.T) {
	in := "1\x1f/repo/a\x1e2\x1f/repo/b\x1e"
	r := NewReader(strings.NewReader(in))

	req1, err := r.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, Request{ID: "1", Dir: "/repo/a"}, req1)

	req2, err := r.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, Request{ID: "2", Dir: "/repo/b"}, req2)

	_, err = r.ReadRequest()
	require.Error(t, err)
}

func TestReaderRejectsMalformedRecord(t *testing.T) {
	r := NewReader(strings.NewReader("only-one-field\x1e"))
	_, err := r.ReadRequest()
	require.Error(t, err)
}

func TestWriterWritesAndFlushes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteResponse(Response{ID: "r", IsRepo: false}))
	require.Equal(t, "r\x1f0\x1e", buf.String())
}
