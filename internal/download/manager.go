// Package download orchestrates one download task end to end: probe, choose a
// strategy, fetch, merge, verify and report lifecycle events.
package download

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"segfetch/internal/download/concurrent"
	"segfetch/internal/download/single"
	"segfetch/internal/download/types"
	"segfetch/internal/events"
	"segfetch/internal/greenhttp"
	"segfetch/internal/logger"
	"segfetch/internal/utils"
	"segfetch/internal/verify"
)

// Request describes one download.
type Request struct {
	URL string
	// Destination is a file path, or an existing directory in which case the
	// file name is taken from the server and made unique.
	Destination string
	// Parts <= 0 lets the downloader pick a count from the file size.
	Parts        int
	ExpectedHash string
	// Algorithm defaults to SHA-256.
	Algorithm verify.Algorithm
}

func (r Request) validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: url is required", types.ErrInvalidRequest)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", types.ErrInvalidRequest, u.Scheme)
	}
	if strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%w: destination is required", types.ErrInvalidRequest)
	}
	if r.ExpectedHash != "" {
		if _, err := r.Algorithm.New(); err != nil {
			return fmt.Errorf("%w: %w", types.ErrInvalidRequest, err)
		}
	}
	return nil
}

// Result summarizes a finished task.
type Result struct {
	FileID  string
	Path    string
	Size    int64
	Parts   int
	Status  events.Status
	Elapsed time.Duration
}

// Downloader runs download tasks against one shared HTTP client and publishes
// their events. It is safe for concurrent use.
type Downloader struct {
	client    *greenhttp.Client
	publisher events.Publisher
	runtime   *types.RuntimeConfig
	fetcher   *concurrent.Fetcher
	locks     *destinationLocks
}

// NewDownloader wires a downloader. A nil publisher discards events and a nil
// runtime uses the engine defaults.
func NewDownloader(client *greenhttp.Client, publisher events.Publisher, rt *types.RuntimeConfig) *Downloader {
	if publisher == nil {
		publisher = events.Discard
	}
	if rt == nil {
		rt = &types.RuntimeConfig{}
	}
	return &Downloader{
		client:    client,
		publisher: publisher,
		runtime:   rt,
		fetcher:   concurrent.NewFetcher(client, rt),
		locks:     newDestinationLocks(),
	}
}

// Download performs req. Invalid requests and probe failures return an error
// without publishing anything. Every other outcome publishes exactly one Start
// and one Finish for the task's fileId, with ProgressUpdates between them.
func (d *Downloader) Download(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Algorithm == "" {
		req.Algorithm = verify.SHA256
	}

	task := types.DownloadTask{
		FileID:       uuid.NewString(),
		URL:          req.URL,
		Parts:        req.Parts,
		ExpectedHash: req.ExpectedHash,
		Algorithm:    req.Algorithm,
	}
	tracker := newTaskTracker(task.FileID)

	tracker.to(types.StateProbing)
	probe, err := ProbeServer(ctx, d.client, task.URL)
	if err != nil {
		tracker.to(types.StateFailed)
		logger.Error("probe failed", logger.Fields{"file_id": task.FileID, "url": task.URL, "error": err})
		return nil, err
	}

	task.Destination = resolveDestination(req.Destination, probe.Filename)
	release := d.locks.acquire(task.Destination)
	defer release()

	logger.Info("download starting", logger.Fields{
		"file_id":     task.FileID,
		"url":         task.URL,
		"destination": task.Destination,
		"size":        probe.FileSize,
	})

	rep := newReporter(d.publisher, task.FileID)
	result := &Result{FileID: task.FileID, Path: task.Destination}
	began := time.Now()
	defer func() { result.Elapsed = time.Since(began) }()

	if d.runtime.ForceSingle || !probe.Segmentable() {
		err = d.runSingle(ctx, task, tracker, rep, result)
	} else {
		err = d.runSegmented(ctx, task, probe.FileSize, tracker, rep, result)
	}
	if err == nil {
		err = d.verify(task, tracker)
	}

	if err != nil {
		tracker.to(types.StateFailed)
		result.Status = events.StatusFailure
		rep.finish(events.StatusFailure)
		logger.Error("download failed", logger.Fields{"file_id": task.FileID, "error": err})
		return result, err
	}

	tracker.to(types.StateSucceeded)
	result.Status = events.StatusSuccess
	rep.finish(events.StatusSuccess)
	logger.Info("download complete", logger.Fields{"file_id": task.FileID, "path": task.Destination, "bytes": result.Size})
	return result, nil
}

func (d *Downloader) runSingle(ctx context.Context, task types.DownloadTask, tracker *taskTracker, rep *reporter, result *Result) error {
	tracker.to(types.StateSingleStream)
	result.Parts = 1
	rep.start(task.URL, task.Destination, 1)
	tracker.to(types.StateFetching)

	sd := single.NewSingleDownloader(task.FileID, d.client, d.runtime)
	n, err := sd.Download(ctx, task.URL, task.Destination, func(downloaded, total int64) {
		if total > 0 {
			rep.progress(types.Percent(downloaded, total))
		}
	})
	result.Size = n
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrPartFailed, err)
	}
	rep.progress(100)
	return nil
}

func (d *Downloader) runSegmented(ctx context.Context, task types.DownloadTask, size int64, tracker *taskTracker, rep *reporter, result *Result) error {
	n := task.Parts
	if n <= 0 {
		n = concurrent.SuggestParts(size, d.runtime)
	}
	parts, err := concurrent.Partition(size, n, task.Destination)
	if err != nil {
		return err
	}
	tracker.to(types.StatePartitioned)
	result.Parts = len(parts)
	rep.start(task.URL, task.Destination, len(parts))
	tracker.to(types.StateFetching)

	progress := types.NewProgressState(size)
	cd := concurrent.NewConcurrentDownloader(task.FileID, d.fetcher, progress)
	if err := cd.Download(ctx, task.URL, parts, func(downloaded int64) {
		rep.progress(types.Percent(downloaded, size))
	}); err != nil {
		if d.runtime.CleanupPartsOnFailure {
			concurrent.RemoveParts(parts)
		}
		return err
	}

	tracker.to(types.StateMerging)
	written, err := concurrent.Assemble(parts, task.Destination)
	result.Size = written
	if err != nil {
		return err
	}
	if written != size {
		return fmt.Errorf("%w: merged %d of %d bytes", types.ErrMergeFailed, written, size)
	}
	return nil
}

func (d *Downloader) verify(task types.DownloadTask, tracker *taskTracker) error {
	if !task.HasHash() {
		return nil
	}
	tracker.to(types.StateVerifying)
	ok, err := verify.Verify(task.Destination, task.ExpectedHash, task.Algorithm)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrHashMismatch, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s digest of %s differs from %s", types.ErrHashMismatch, task.Algorithm, task.Destination, task.ExpectedHash)
	}
	logger.Debug("checksum verified", logger.Fields{"file_id": task.FileID, "algorithm": task.Algorithm.String()})
	return nil
}

// resolveDestination turns a directory destination into a unique file path inside it.
func resolveDestination(dest, probeFilename string) string {
	abs := utils.EnsureAbsPath(dest)
	if utils.IsDir(abs) || strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(os.PathSeparator)) {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			logger.Debug("could not create destination directory", logger.Fields{"dir": abs, "error": err})
		}
		return utils.UniqueFilePath(filepath.Join(abs, probeFilename))
	}
	return abs
}

// IsFailure reports whether err came from a task that published Finish(FAILURE).
func IsFailure(err error) bool {
	return errors.Is(err, types.ErrPartFailed) ||
		errors.Is(err, types.ErrMergeFailed) ||
		errors.Is(err, types.ErrHashMismatch)
}
