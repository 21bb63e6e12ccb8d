package mtimeprobe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Granularity = 10 * time.Millisecond
	m.Run()
}

func TestProbeResolvesTrueOnNormalFilesystem(t *testing.T) {
	root := t.TempDir()
	p := Start(root)
	result := p.Wait()
	require.Equal(t, True, result)
}

func TestResultBeforeResolution(t *testing.T) {
	old := Granularity
	Granularity = 200 * time.Millisecond
	defer func() { Granularity = old }()

	root := t.TempDir()
	p := Start(root)
	result, done := p.Result()
	require.False(t, done)
	require.Equal(t, Unknown, result)

	p.Wait()
	result, done = p.Result()
	require.True(t, done)
	require.Equal(t, True, result)
}

func TestProbeFalseOnUnwritableRoot(t *testing.T) {
	p := Start("/nonexistent/path/for/gitstatusd/test")
	require.Equal(t, False, p.Wait())
}

func TestTriboolString(t *testing.T) {
	require.Equal(t, "true", True.String())
	require.Equal(t, "false", False.String())
	require.Equal(t, "unknown", Unknown.String())
}
