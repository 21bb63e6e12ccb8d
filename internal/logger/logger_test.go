package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func resetLoggerState() {
	fileWriter = nil
	logContext = requestContext{}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"WARN":    zerolog.WarnLevel,
		"WARNING": zerolog.WarnLevel,
		"ERROR":   zerolog.ErrorLevel,
		"FATAL":   zerolog.FatalLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestInit(t *testing.T) {
	resetLoggerState()
	Init(zerolog.DebugLevel)
	require.Equal(t, zerolog.DebugLevel, Log.GetLevel())
}

func TestLogFunctionsReturnEvents(t *testing.T) {
	resetLoggerState()
	tmpDir := t.TempDir()
	require.NoError(t, InitWithFile(zerolog.DebugLevel, tmpDir, &LoggingConfig{MaxSizeMB: 1}))
	t.Cleanup(func() { require.NoError(t, Close()) })

	require.NotNil(t, Debug())
	require.NotNil(t, Info())
	require.NotNil(t, Warn())
	require.NotNil(t, Error())
}

func TestInitWithFileCreatesLogFile(t *testing.T) {
	resetLoggerState()
	tmpDir := t.TempDir()

	require.NoError(t, InitWithFile(zerolog.InfoLevel, tmpDir, &LoggingConfig{MaxSizeMB: 1}))
	Info().Msg("test log message")
	require.NoError(t, Close())

	expectedPath := filepath.Join(tmpDir, "gitstatusd.log")
	content, err := os.ReadFile(expectedPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "test log message")
}

func TestInitWithFileDisabled(t *testing.T) {
	resetLoggerState()
	falseVal := false
	err := InitWithFile(zerolog.InfoLevel, "/some/path", &LoggingConfig{FileEnabled: &falseVal})
	require.NoError(t, err)
	require.Nil(t, fileWriter)
}

func TestInitWithFileEmptyDir(t *testing.T) {
	resetLoggerState()
	require.NoError(t, InitWithFile(zerolog.InfoLevel, "", &LoggingConfig{}))
	require.Nil(t, fileWriter)
}

func TestCloseWhenNil(t *testing.T) {
	resetLoggerState()
	require.NoError(t, Close())
}

func TestLoggingConfigDefaults(t *testing.T) {
	cfg := &LoggingConfig{}
	require.True(t, cfg.IsFileEnabled())
	require.Equal(t, 50, cfg.GetMaxSizeMB())
	require.Equal(t, 7, cfg.GetMaxAgeDays())
	require.Equal(t, 3, cfg.GetMaxBackups())

	falseVal := false
	cfg.FileEnabled = &falseVal
	require.False(t, cfg.IsFileEnabled())

	cfg = &LoggingConfig{MaxSizeMB: 20, MaxAgeDays: 14, MaxBackups: 5}
	require.Equal(t, 20, cfg.GetMaxSizeMB())
	require.Equal(t, 14, cfg.GetMaxAgeDays())
	require.Equal(t, 5, cfg.GetMaxBackups())
}

func TestSetContext(t *testing.T) {
	resetLoggerState()
	Init(zerolog.InfoLevel)
	defer ClearContext()

	SetContext("r-1", "/repo")
	ctx := getContext()
	require.Equal(t, "r-1", ctx.RequestID)
	require.Equal(t, "/repo", ctx.RepoDir)

	ClearContext()
	ctx = getContext()
	require.Empty(t, ctx.RequestID)
	require.Empty(t, ctx.RepoDir)
}

func TestContextInFileLog(t *testing.T) {
	resetLoggerState()
	tmpDir := t.TempDir()
	require.NoError(t, InitWithFile(zerolog.InfoLevel, tmpDir, &LoggingConfig{MaxSizeMB: 1}))
	defer ClearContext()

	SetContext("req-42", "/home/x/repo")
	Info().Msg("context test")
	require.NoError(t, Close())

	content, err := os.ReadFile(filepath.Join(tmpDir, "gitstatusd.log"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(content), "req-42"))
	require.True(t, strings.Contains(string(content), "/home/x/repo"))
}

func TestContextNotInLogWhenEmpty(t *testing.T) {
	resetLoggerState()
	tmpDir := t.TempDir()
	require.NoError(t, InitWithFile(zerolog.InfoLevel, tmpDir, &LoggingConfig{MaxSizeMB: 1}))
	defer ClearContext()

	ClearContext()
	Info().Msg("no context test")
	require.NoError(t, Close())

	content, err := os.ReadFile(filepath.Join(tmpDir, "gitstatusd.log"))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(content), `"request_id"`))
	require.False(t, strings.Contains(string(content), `"repo_dir"`))
}
