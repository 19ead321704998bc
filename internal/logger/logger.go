// Package logger is the process-wide structured logger. Console output goes
// to stderr so it never interleaves with progress lines on stdout; when a debug
// directory is configured every entry is also appended to a timestamped file.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is re-exported so callers do not import logrus directly.
type Fields = logrus.Fields

var (
	logger   *logrus.Logger
	loggerMu sync.Mutex

	debugFile *os.File
)

// InitLogger initializes the global logger.
func InitLogger(logLevel string, noColor bool) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	l := logrus.New()
	l.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: noColor,
		FullTimestamp: false,
	})

	if debugFile != nil {
		l.AddHook(&fileHook{w: debugFile})
	}

	logger = l
}

// GetLogger returns the configured logger instance.
func GetLogger() *logrus.Logger {
	loggerMu.Lock()
	l := logger
	loggerMu.Unlock()
	if l == nil {
		InitLogger("info", false)
		loggerMu.Lock()
		l = logger
		loggerMu.Unlock()
	}
	return l
}

// SetOutput redirects console output, mainly for tests.
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

// SetLevel changes the level of the active logger.
func SetLevel(level logrus.Level) {
	GetLogger().SetLevel(level)
}

// ConfigureDebugFile opens debug-<timestamp>.log in dir and attaches it to the
// logger. Calling it again replaces the previous file.
func ConfigureDebugFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create logs dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open debug log: %w", err)
	}

	l := GetLogger()
	loggerMu.Lock()
	if debugFile != nil {
		_ = debugFile.Close()
	}
	debugFile = f
	hooks := make(logrus.LevelHooks)
	hooks.Add(&fileHook{w: f})
	l.ReplaceHooks(hooks)
	loggerMu.Unlock()

	return path, nil
}

// Close detaches and closes the debug file, if any.
func Close() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if debugFile != nil {
		_ = debugFile.Close()
		debugFile = nil
	}
	if logger != nil {
		logger.ReplaceHooks(make(logrus.LevelHooks))
	}
}

// CleanupLogs removes old debug logs in dir, keeping the newest retentionCount.
// A negative retentionCount keeps everything.
func CleanupLogs(dir string, retentionCount int) {
	if retentionCount < 0 || dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logs []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, "debug-") && strings.HasSuffix(name, ".log") {
			logs = append(logs, name)
		}
	}

	// debug-YYYYMMDD-HHMMSS.log sorts chronologically; newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(logs)))

	if len(logs) <= retentionCount {
		return
	}
	for _, name := range logs[retentionCount:] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// Info logs an info message.
func Info(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Info(msg)
}

// Debug logs a debug message (only shown when debug level is enabled).
func Debug(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Debug(msg)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) {
	GetLogger().Debugf(format, args...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Warn(msg)
}

// Error logs an error message.
func Error(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Error(msg)
}

func mergeFields(fields ...Fields) logrus.Fields {
	result := make(logrus.Fields)
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}

// fileHook mirrors every entry that passes the logger level into w.
type fileHook struct {
	mu sync.Mutex
	w  io.Writer
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := (&logrus.TextFormatter{DisableColors: true, FullTimestamp: true}).Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}
