// Package config locates the per-user directories and loads settings.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"segfetch/internal/download/types"
	"segfetch/internal/verify"
)

var (
	ErrConfigParse      = errors.New("config: parse error")
	ErrConfigValidation = errors.New("config: validation failed")
)

// Settings is the user-editable configuration.
type Settings struct {
	General  GeneralSettings  `yaml:"general"`
	Network  NetworkSettings  `yaml:"network"`
	Download DownloadSettings `yaml:"download"`
}

type GeneralSettings struct {
	LogLevel          string `yaml:"log_level"`
	LogRetentionCount int    `yaml:"log_retention_count"`
	Verbose           bool   `yaml:"verbose"`
	NoColor           bool   `yaml:"no_color"`
}

type NetworkSettings struct {
	Parts                 int           `yaml:"parts"`
	MaxConnectionsPerHost int           `yaml:"max_connections_per_host"`
	Protocol              string        `yaml:"protocol"`
	UserAgent             string        `yaml:"user_agent,omitempty"`
	ProxyURL              string        `yaml:"proxy_url,omitempty"`
	DialTimeout           time.Duration `yaml:"dial_timeout"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
}

type DownloadSettings struct {
	Algorithm             string `yaml:"algorithm"`
	WorkerBufferSize      int    `yaml:"worker_buffer_size"`
	MinChunkSize          int64  `yaml:"min_chunk_size"`
	CleanupPartsOnFailure bool   `yaml:"cleanup_parts_on_failure"`
	ForceSingle           bool   `yaml:"force_single"`
}

// DefaultSettings returns settings with the engine defaults filled in.
func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			LogLevel:          "info",
			LogRetentionCount: 5,
		},
		Network: NetworkSettings{
			Parts:                 4,
			MaxConnectionsPerHost: types.PerHostMax,
			Protocol:              types.ProtocolAuto,
			DialTimeout:           types.DialTimeout,
			ResponseHeaderTimeout: types.DefaultResponseHeaderTimeout,
		},
		Download: DownloadSettings{
			Algorithm:        string(verify.SHA256),
			WorkerBufferSize: types.WorkerBuffer,
			MinChunkSize:     types.MinChunk,
		},
	}
}

// LoadSettings reads settings.yaml from the config dir. A missing file yields defaults.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom reads settings from path. A missing file yields defaults.
func LoadSettingsFrom(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to open settings file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return LoadSettingsFromReader(f)
}

// LoadSettingsFromReader decodes YAML over the defaults, so omitted keys keep
// their default values.
func LoadSettingsFromReader(r io.Reader) (*Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks value ranges and enumerations.
func (s *Settings) Validate() error {
	switch s.Network.Protocol {
	case types.ProtocolAuto, types.ProtocolHTTP1, types.ProtocolHTTP2, types.ProtocolHTTP3:
	default:
		return fmt.Errorf("%w: unknown protocol %q", ErrConfigValidation, s.Network.Protocol)
	}
	if s.Network.Parts < 0 {
		return fmt.Errorf("%w: parts must not be negative", ErrConfigValidation)
	}
	if s.Network.MaxConnectionsPerHost < 1 {
		return fmt.Errorf("%w: max_connections_per_host must be at least 1", ErrConfigValidation)
	}
	if s.Download.WorkerBufferSize < 0 || s.Download.MinChunkSize < 0 {
		return fmt.Errorf("%w: buffer sizes must not be negative", ErrConfigValidation)
	}
	if s.General.LogRetentionCount < 0 {
		return fmt.Errorf("%w: log_retention_count must not be negative", ErrConfigValidation)
	}
	if _, err := verify.ParseAlgorithm(s.Download.Algorithm); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	return nil
}

// Save writes the settings to path atomically.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from SEGFETCH_* environment variables.
// Unparsable values are reported and leave the setting unchanged.
func (s *Settings) ApplyEnv() error {
	var errs []error

	if v, ok := os.LookupEnv("SEGFETCH_LOG_LEVEL"); ok {
		s.General.LogLevel = v
	}
	if v, ok := os.LookupEnv("SEGFETCH_PROTOCOL"); ok {
		s.Network.Protocol = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("SEGFETCH_USER_AGENT"); ok {
		s.Network.UserAgent = v
	}
	if v, ok := os.LookupEnv("SEGFETCH_PROXY"); ok {
		s.Network.ProxyURL = v
	}
	if v, ok := os.LookupEnv("SEGFETCH_ALGORITHM"); ok {
		s.Download.Algorithm = v
	}
	if v, ok := os.LookupEnv("SEGFETCH_PARTS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.Network.Parts = n
		} else {
			errs = append(errs, fmt.Errorf("SEGFETCH_PARTS: %w", err))
		}
	}
	if v, ok := os.LookupEnv("SEGFETCH_FORCE_SINGLE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Download.ForceSingle = b
		} else {
			errs = append(errs, fmt.Errorf("SEGFETCH_FORCE_SINGLE: %w", err))
		}
	}
	if v, ok := os.LookupEnv("SEGFETCH_VERBOSE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.General.Verbose = b
		} else {
			errs = append(errs, fmt.Errorf("SEGFETCH_VERBOSE: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Runtime converts the settings to the engine-level RuntimeConfig.
func (s *Settings) Runtime() *types.RuntimeConfig {
	return &types.RuntimeConfig{
		MaxConnectionsPerHost: s.Network.MaxConnectionsPerHost,
		UserAgent:             s.Network.UserAgent,
		ProxyURL:              s.Network.ProxyURL,
		ProtocolPreference:    s.Network.Protocol,
		DialTimeout:           s.Network.DialTimeout,
		ResponseHeaderTimeout: s.Network.ResponseHeaderTimeout,
		MinChunkSize:          s.Download.MinChunkSize,
		WorkerBufferSize:      s.Download.WorkerBufferSize,
		ForceSingle:           s.Download.ForceSingle,
		CleanupPartsOnFailure: s.Download.CleanupPartsOnFailure,
	}
}
