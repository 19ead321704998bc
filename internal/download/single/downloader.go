// Package single implements the one-connection fallback used when a server
// cannot serve byte ranges or does not report a size.
package single

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"segfetch/internal/download/types"
	"segfetch/internal/greenhttp"
	"segfetch/internal/logger"
)

// WorkingSuffix marks the file being streamed until it is renamed into place.
const WorkingSuffix = ".single" + types.PartSuffix

// SingleDownloader streams a whole response body in one request.
type SingleDownloader struct {
	ID      string // fileId of the task
	client  *greenhttp.Client
	Runtime *types.RuntimeConfig
}

// NewSingleDownloader creates a fallback downloader for one task.
func NewSingleDownloader(id string, client *greenhttp.Client, rt *types.RuntimeConfig) *SingleDownloader {
	return &SingleDownloader{ID: id, client: client, Runtime: rt}
}

// Download GETs rawurl and writes the body to destPath. onProgress is called
// after every chunk with the bytes so far and the response Content-Length
// (-1 when the server did not send one). The body goes to a working file that
// replaces destPath only once the stream is complete.
func (d *SingleDownloader) Download(ctx context.Context, rawurl, destPath string, onProgress func(downloaded, total int64)) (int64, error) {
	resp, err := d.client.Get(ctx, rawurl)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer greenhttp.DrainAndClose(resp.Body)

	if err := greenhttp.CheckStatus(resp); err != nil {
		return 0, err
	}

	total := resp.ContentLength
	logger.Debug("single-stream download starting", logger.Fields{"file_id": d.ID, "size": total})

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	workingPath := destPath + WorkingSuffix
	out, err := os.Create(workingPath)
	if err != nil {
		return 0, fmt.Errorf("create working file: %w", err)
	}

	written, copyErr := d.copy(out, resp.Body, total, onProgress)
	if cerr := out.Close(); cerr != nil && copyErr == nil {
		copyErr = fmt.Errorf("close working file: %w", cerr)
	}
	if copyErr == nil && total >= 0 && written != total {
		copyErr = fmt.Errorf("%w: got %d of %d bytes", types.ErrShortPart, written, total)
	}
	if copyErr != nil {
		_ = os.Remove(workingPath)
		return written, copyErr
	}

	if err := os.Rename(workingPath, destPath); err != nil {
		_ = os.Remove(workingPath)
		return written, fmt.Errorf("move into place: %w", err)
	}
	return written, nil
}

func (d *SingleDownloader) copy(dst io.Writer, src io.Reader, total int64, onProgress func(int64, int64)) (int64, error) {
	buf := make([]byte, d.Runtime.GetWorkerBufferSize())
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write: %w", werr)
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, total)
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
