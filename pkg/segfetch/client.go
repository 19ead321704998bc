// Package segfetch is the embedding API: one Client owns the shared HTTP
// client, the event bus and the history database for a process.
package segfetch

import (
	"context"
	"errors"
	"os"
	"sync"

	"segfetch/internal/config"
	"segfetch/internal/download"
	"segfetch/internal/events"
	"segfetch/internal/greenhttp"
	"segfetch/internal/logger"
	"segfetch/internal/state"
)

var ErrHistoryDisabled = errors.New("segfetch: history is disabled")

// Client runs downloads and fans their events out to subscribers.
type Client struct {
	settings   *config.Settings
	http       *greenhttp.Client
	bus        *events.Bus
	store      *state.Store
	downloader *download.Downloader
	debugLog   string

	closeOnce sync.Once
	closeErr  error
}

// NewClient initializes the engine and returns a ready-to-use client.
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}
	settings := resolveSettings(opts)

	c := &Client{settings: settings}

	if opts.Verbose || settings.General.Verbose {
		logger.InitLogger("debug", settings.General.NoColor)
		logsDir := opts.LogsDir
		if logsDir == "" {
			logsDir = config.GetLogsDir()
		}
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, err
		}
		path, err := logger.ConfigureDebugFile(logsDir)
		if err != nil {
			return nil, err
		}
		c.debugLog = path
		logger.CleanupLogs(logsDir, settings.General.LogRetentionCount)
	}

	if !opts.DisableHistory {
		statePath := opts.StatePath
		if statePath == "" {
			if err := config.EnsureDirs(); err != nil {
				return nil, err
			}
			statePath = config.GetHistoryDBPath()
		}
		store, err := state.Open(statePath)
		if err != nil {
			return nil, err
		}
		c.store = store
	}

	rt := settings.Runtime()
	httpOpts := greenhttp.OptionsFromRuntime(rt)
	httpOpts.Transport = opts.Transport
	c.http = greenhttp.NewClient(httpOpts)

	c.bus = events.NewBus(opts.BusWorkers)
	if c.store != nil {
		c.store.Attach(c.bus)
	}
	c.downloader = download.NewDownloader(c.http, c.bus, rt)
	return c, nil
}

// resolveSettings keeps the client usable even when settings fail to load from disk.
func resolveSettings(opts *ClientOptions) *config.Settings {
	if opts.Settings != nil {
		return opts.Settings
	}
	settings, err := config.LoadSettings()
	if err != nil {
		logger.Warn("falling back to default settings", logger.Fields{"error": err})
		settings = config.DefaultSettings()
	}
	if err := settings.ApplyEnv(); err != nil {
		logger.Warn("ignoring invalid environment overrides", logger.Fields{"error": err})
	}
	return settings
}

// Settings returns the effective settings.
func (c *Client) Settings() *config.Settings { return c.settings }

// DebugLogPath returns the verbose log file, if one was opened.
func (c *Client) DebugLogPath() string { return c.debugLog }

// Download runs req to completion. Zero Parts and empty Algorithm take the
// configured defaults.
func (c *Client) Download(ctx context.Context, req Request) (*Result, error) {
	if req.Parts == 0 {
		req.Parts = c.settings.Network.Parts
	}
	if req.Algorithm == "" && req.ExpectedHash != "" {
		algo, err := ParseAlgorithm(c.settings.Download.Algorithm)
		if err != nil {
			return nil, err
		}
		req.Algorithm = algo
	}
	return c.downloader.Download(ctx, req)
}

// Subscribe registers h for events of kind. The returned func unsubscribes.
func (c *Client) Subscribe(kind EventKind, h Handler) func() {
	return c.bus.Subscribe(kind, h)
}

// SubscribeAll registers h for every event kind.
func (c *Client) SubscribeAll(h Handler) func() {
	return c.bus.SubscribeAll(h)
}

// History returns up to limit recorded downloads, newest first.
func (c *Client) History(limit int) ([]HistoryEntry, error) {
	if c.store == nil {
		return nil, ErrHistoryDisabled
	}
	return c.store.List(limit)
}

// ClearHistory removes all recorded downloads.
func (c *Client) ClearHistory() (int64, error) {
	if c.store == nil {
		return 0, ErrHistoryDisabled
	}
	return c.store.Clear()
}

// Shutdown delivers pending events and releases the HTTP client and database.
// It is safe to call multiple times from different goroutines.
func (c *Client) Shutdown() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.bus.Close()
		c.http.Close()
		if c.store != nil {
			c.closeErr = c.store.Close()
		}
		logger.Close()
	})
	return c.closeErr
}
