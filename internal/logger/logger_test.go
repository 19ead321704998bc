package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level string, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	InitLogger(level, true)
	SetOutput(buf)
	t.Cleanup(func() { InitLogger("info", true) })

	fn()
	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("test info message") },
			contains: []string{"test info message", "level=info"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("test debug message") },
			contains: []string{"test debug message", "level=debug"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("test debug message") },
			excludes: []string{"test debug message"},
		},
		{
			name:     "fields are merged",
			level:    "info",
			logFn:    func() { Warn("part failed", Fields{"part": 2}, Fields{"file_id": "abc"}) },
			contains: []string{"part failed", "part=2", "file_id=abc", "level=warning"},
		},
		{
			name:     "invalid level falls back to info",
			level:    "loud",
			logFn:    func() { Error("boom"); Debug("hidden") },
			contains: []string{"boom"},
			excludes: []string{"hidden"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.level, tt.logFn)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestConfigureDebugFile(t *testing.T) {
	dir := t.TempDir()
	InitLogger("debug", true)
	SetOutput(&bytes.Buffer{})
	t.Cleanup(Close)

	path, err := ConfigureDebugFile(dir)
	require.NoError(t, err)

	Debug("written to file", Fields{"part": 1})
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), "part=1")
}

func TestCleanupLogs(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"debug-20240101-000000.log",
		"debug-20240102-000000.log",
		"debug-20240103-000000.log",
		"other.txt",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}

	CleanupLogs(dir, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	assert.ElementsMatch(t, []string{"debug-20240103-000000.log", "other.txt"}, left)

	// negative retention keeps everything
	CleanupLogs(dir, -1)
	entries, _ = os.ReadDir(dir)
	assert.Len(t, entries, 2)
}

func TestSetLevel(t *testing.T) {
	out := captureOutput(t, "info", func() {
		SetLevel(logrus.DebugLevel)
		Debugf("part %d done", 3)
	})
	assert.Contains(t, out, "part 3 done")
}
