package concurrent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"segfetch/internal/download/types"
	"segfetch/internal/greenhttp"
	"segfetch/internal/logger"
)

// Fetcher downloads single byte ranges into part files. Buffers are pooled
// across parts so a task with many parts does not allocate per part.
type Fetcher struct {
	client  *greenhttp.Client
	bufPool sync.Pool
}

// NewFetcher creates a fetcher writing in chunks of the runtime's worker buffer size.
func NewFetcher(client *greenhttp.Client, rt *types.RuntimeConfig) *Fetcher {
	size := rt.GetWorkerBufferSize()
	return &Fetcher{
		client: client,
		bufPool: sync.Pool{
			New: func() any {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// FetchPart is a convenience wrapper around a default Fetcher.
func FetchPart(ctx context.Context, client *greenhttp.Client, rawurl string, part types.PartSpec, onProgress func(int64)) error {
	return NewFetcher(client, nil).Fetch(ctx, rawurl, part, onProgress)
}

// Fetch requests part's range and writes the body into part.Path, calling
// onProgress with the byte count after every chunk written. A partial file is
// left behind on failure.
func (f *Fetcher) Fetch(ctx context.Context, rawurl string, part types.PartSpec, onProgress func(int64)) error {
	resp, err := f.client.GetRange(ctx, rawurl, part.Start, part.End)
	if err != nil {
		return fmt.Errorf("part %d: request: %w", part.Index, err)
	}
	defer greenhttp.DrainAndClose(resp.Body)

	if err := greenhttp.CheckStatus(resp); err != nil {
		return fmt.Errorf("part %d: %w", part.Index, err)
	}
	if err := checkRangeResponse(resp, part); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(part.Path), 0o755); err != nil {
		return fmt.Errorf("part %d: create directory: %w", part.Index, err)
	}
	out, err := os.Create(part.Path)
	if err != nil {
		return fmt.Errorf("part %d: create part file: %w", part.Index, err)
	}

	written, copyErr := f.copyBody(out, resp.Body, onProgress)
	if cerr := out.Close(); cerr != nil && copyErr == nil {
		copyErr = fmt.Errorf("close part file: %w", cerr)
	}
	if copyErr != nil {
		return fmt.Errorf("part %d: %w", part.Index, copyErr)
	}
	if written != part.Len() {
		return fmt.Errorf("%w: part %d got %d of %d bytes", types.ErrShortPart, part.Index, written, part.Len())
	}

	logger.Debug("part complete", logger.Fields{"part": part.Index, "range": part.RangeHeader(), "bytes": written})
	return nil
}

// checkRangeResponse rejects answers that would put the wrong bytes into the part.
func checkRangeResponse(resp *http.Response, part types.PartSpec) error {
	if resp.StatusCode == http.StatusPartialContent {
		return nil
	}
	// A 200 is only usable when the whole file happens to be exactly this range.
	if resp.Header.Get("Content-Range") == "" && part.Start == 0 && resp.ContentLength == part.Len() {
		return nil
	}
	return fmt.Errorf("%w: part %d got %s for %s", types.ErrRangeIgnored, part.Index, resp.Status, part.RangeHeader())
}

func (f *Fetcher) copyBody(dst io.Writer, src io.Reader, onProgress func(int64)) (int64, error) {
	bufPtr := f.bufPool.Get().(*[]byte)
	defer f.bufPool.Put(bufPtr)
	buf := *bufPtr

	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write part file: %w", werr)
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(int64(n))
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read body: %w", rerr)
		}
	}
}
