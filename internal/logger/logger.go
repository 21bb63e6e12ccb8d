// Package logger provides the process-wide structured logger for gitstatusd.
//
// Logging always goes to stderr (optionally mirrored to a rotating file) because
// stdout is reserved for the request/response wire protocol (internal/protocol).
// There is no interactive-mode console suppression here, unlike a TUI-facing tool:
// gitstatusd has no terminal UI to protect, so console logging is simply always on
// at the configured level.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance.
	Log zerolog.Logger

	// fileWriter is the rotating file sink, non-nil once InitWithFile enables it.
	fileWriter *lumberjack.Logger

	logContext   requestContext
	logContextMu sync.RWMutex
)

// requestContext holds the fields attached to every subsequent log entry.
// SetContext is called once per request by the dispatcher so a whole request's
// worth of worker-pool logging can be correlated in the file sink.
type requestContext struct {
	RequestID string
	RepoDir   string
}

// SetContext sets the request id / repo dir fields for all subsequent log entries.
// Pass empty strings to clear. Safe for concurrent use by pool workers.
func SetContext(requestID, repoDir string) {
	logContextMu.Lock()
	defer logContextMu.Unlock()
	logContext = requestContext{RequestID: requestID, RepoDir: repoDir}
}

// ClearContext clears the request-scoped fields.
func ClearContext() {
	SetContext("", "")
}

func getContext() requestContext {
	logContextMu.RLock()
	defer logContextMu.RUnlock()
	return logContext
}

func addContext(event *zerolog.Event) *zerolog.Event {
	ctx := getContext()
	if ctx.RequestID != "" {
		event = event.Str("request_id", ctx.RequestID)
	}
	if ctx.RepoDir != "" {
		event = event.Str("repo_dir", ctx.RepoDir)
	}
	return event
}

// LoggingConfig holds configuration for the rotating file sink.
type LoggingConfig struct {
	FileEnabled *bool
	MaxSizeMB   int
	MaxAgeDays  int
	MaxBackups  int
}

// IsFileEnabled reports whether file logging is enabled, defaulting to true.
func (c *LoggingConfig) IsFileEnabled() bool {
	if c == nil || c.FileEnabled == nil {
		return true
	}
	return *c.FileEnabled
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50.
func (c *LoggingConfig) GetMaxSizeMB() int {
	if c == nil || c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7.
func (c *LoggingConfig) GetMaxAgeDays() int {
	if c == nil || c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

// GetMaxBackups returns the max backup count, defaulting to 3.
func (c *LoggingConfig) GetMaxBackups() int {
	if c == nil || c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

// ParseLevel maps the daemon's --log-level values to zerolog levels.
// Unrecognized input falls back to InfoLevel.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO", "":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes console-only logging at the given level.
func Init(level zerolog.Level) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	}
	Log = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// InitWithFile initializes logging with an optional rotating file mirror.
// If logsDir is empty or cfg disables file logging, this behaves like Init.
func InitWithFile(level zerolog.Level, logsDir string, cfg *LoggingConfig) error {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	}

	if logsDir == "" || !cfg.IsFileEnabled() {
		Log = zerolog.New(consoleWriter).Level(level).With().Timestamp().Logger()
		return nil
	}

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}

	fileWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, "gitstatusd.log"),
		MaxSize:    cfg.GetMaxSizeMB(),
		MaxAge:     cfg.GetMaxAgeDays(),
		MaxBackups: cfg.GetMaxBackups(),
		LocalTime:  true,
		Compress:   true,
	}

	multi := io.MultiWriter(consoleWriter, fileWriter)
	Log = zerolog.New(multi).Level(level).With().Timestamp().Logger()
	return nil
}

// Close flushes and closes the file writer, if any. Safe to call multiple times.
func Close() error {
	if fileWriter != nil {
		err := fileWriter.Close()
		fileWriter = nil
		return err
	}
	return nil
}

// Debug returns a debug-level event with request context attached.
func Debug() *zerolog.Event { return addContext(Log.Debug()) }

// Info returns an info-level event with request context attached.
func Info() *zerolog.Event { return addContext(Log.Info()) }

// Warn returns a warn-level event with request context attached.
func Warn() *zerolog.Event { return addContext(Log.Warn()) }

// Error returns an error-level event with request context attached.
func Error() *zerolog.Event { return addContext(Log.Error()) }

// Fatal returns a fatal-level event with request context attached.
func Fatal() *zerolog.Event { return addContext(Log.Fatal()) }
