package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segfetch/internal/download/types"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 4, s.Network.Parts)
	assert.Equal(t, "SHA-256", s.Download.Algorithm)
}

func TestLoadSettingsFrom_MissingFile(t *testing.T) {
	s, err := LoadSettingsFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsFromReader(t *testing.T) {
	yml := `
network:
  parts: 8
  protocol: http1
  dial_timeout: 5s
download:
  algorithm: md5
  cleanup_parts_on_failure: true
`
	s, err := LoadSettingsFromReader(strings.NewReader(yml))
	require.NoError(t, err)
	assert.Equal(t, 8, s.Network.Parts)
	assert.Equal(t, types.ProtocolHTTP1, s.Network.Protocol)
	assert.Equal(t, 5*time.Second, s.Network.DialTimeout)
	assert.Equal(t, types.PerHostMax, s.Network.MaxConnectionsPerHost, "omitted keys keep defaults")
	assert.True(t, s.Download.CleanupPartsOnFailure)
	assert.Equal(t, "info", s.General.LogLevel)
}

func TestLoadSettingsFromReader_Errors(t *testing.T) {
	_, err := LoadSettingsFromReader(strings.NewReader("network: [broken"))
	assert.ErrorIs(t, err, ErrConfigParse)

	_, err = LoadSettingsFromReader(strings.NewReader("network:\n  protocol: gopher\n"))
	assert.ErrorIs(t, err, ErrConfigValidation)

	_, err = LoadSettingsFromReader(strings.NewReader("download:\n  algorithm: crc32\n"))
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestSettings_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s := DefaultSettings()
	s.Network.Parts = 12
	s.Network.ProxyURL = "http://proxy:3128"
	require.NoError(t, s.Save(path))

	loaded, err := LoadSettingsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSettings_ApplyEnv(t *testing.T) {
	t.Setenv("SEGFETCH_PARTS", "6")
	t.Setenv("SEGFETCH_PROTOCOL", "HTTP2")
	t.Setenv("SEGFETCH_FORCE_SINGLE", "true")
	t.Setenv("SEGFETCH_VERBOSE", "maybe")

	s := DefaultSettings()
	err := s.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEGFETCH_VERBOSE")

	assert.Equal(t, 6, s.Network.Parts)
	assert.Equal(t, types.ProtocolHTTP2, s.Network.Protocol)
	assert.True(t, s.Download.ForceSingle)
	assert.False(t, s.General.Verbose)
}

func TestSettings_Runtime(t *testing.T) {
	s := DefaultSettings()
	s.Download.CleanupPartsOnFailure = true
	s.Network.MaxConnectionsPerHost = 3

	rt := s.Runtime()
	assert.Equal(t, 3, rt.GetMaxConnectionsPerHost())
	assert.True(t, rt.CleanupPartsOnFailure)
	assert.Equal(t, types.WorkerBuffer, rt.GetWorkerBufferSize())
}

func TestPaths_HonorHomeOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SEGFETCH_HOME", home)

	assert.Equal(t, home, GetSegfetchDir())
	assert.Equal(t, filepath.Join(home, "state"), GetStateDir())
	assert.Equal(t, filepath.Join(home, "logs"), GetLogsDir())
	assert.Equal(t, filepath.Join(home, "run"), GetRuntimeDir())
	assert.Equal(t, filepath.Join(home, "state", "history.db"), GetHistoryDBPath())
	require.NoError(t, EnsureDirs())
}
