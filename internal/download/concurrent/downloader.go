package concurrent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"segfetch/internal/download/types"
	"segfetch/internal/logger"
)

// ConcurrentDownloader fetches every part of one task on its own goroutine
// and folds their byte counts into a shared ProgressState.
type ConcurrentDownloader struct {
	ID      string // fileId of the task
	State   *types.ProgressState
	fetcher *Fetcher
}

// NewConcurrentDownloader creates a downloader for one task.
func NewConcurrentDownloader(id string, fetcher *Fetcher, progState *types.ProgressState) *ConcurrentDownloader {
	return &ConcurrentDownloader{
		ID:      id,
		State:   progState,
		fetcher: fetcher,
	}
}

// Download fetches all parts concurrently and waits for every worker to
// return. onProgress receives the running byte total after each chunk and may
// be called from several goroutines at once. The first part error cancels the
// remaining parts and is returned wrapped in types.ErrPartFailed.
func (d *ConcurrentDownloader) Download(ctx context.Context, rawurl string, parts []types.PartSpec, onProgress func(downloaded int64)) error {
	logger.Debug("concurrent download starting", logger.Fields{"file_id": d.ID, "parts": len(parts)})

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	start := time.Now()
	for _, part := range parts {
		wg.Add(1)
		go func(part types.PartSpec) {
			defer wg.Done()

			logger.Debug("part starting", logger.Fields{"file_id": d.ID, "part": part.Index, "range": part.RangeHeader()})
			err := d.fetcher.Fetch(workCtx, rawurl, part, func(n int64) {
				total := d.State.Add(n)
				if onProgress != nil {
					onProgress(total)
				}
			})
			if err == nil {
				return
			}

			errMu.Lock()
			defer errMu.Unlock()
			if firstErr == nil {
				firstErr = err
				cancel()
				logger.Error("part failed", logger.Fields{"file_id": d.ID, "part": part.Index, "error": err})
				return
			}
			if errors.Is(err, context.Canceled) {
				logger.Debug("part cancelled", logger.Fields{"file_id": d.ID, "part": part.Index})
				return
			}
			logger.Warn("additional part failure", logger.Fields{"file_id": d.ID, "part": part.Index, "error": err})
		}(part)
	}
	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("%w: %w", types.ErrPartFailed, firstErr)
	}
	logger.Debug("all parts complete", logger.Fields{
		"file_id": d.ID,
		"bytes":   d.State.Downloaded.Load(),
		"elapsed": time.Since(start).String(),
	})
	return nil
}
