package download

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"segfetch/internal/download/types"
	"segfetch/internal/greenhttp"
	"segfetch/internal/logger"
	"segfetch/internal/utils"
)

// ProbeResult contains metadata from the probe step used to select the download strategy.
type ProbeResult struct {
	// FileSize is 0 when unknown or when the server does not take ranges.
	FileSize      int64
	SupportsRange bool
	Filename      string
	ContentType   string
	ETag          string
	FinalURL      string
}

// Segmentable reports whether the file can be split into range parts.
func (p *ProbeResult) Segmentable() bool {
	return p.SupportsRange && p.FileSize > 0
}

// ProbeServer issues a HEAD request for rawurl and reports size and range support.
// Transport failures and non-2xx answers wrap types.ErrProbeFailed.
func ProbeServer(ctx context.Context, client *greenhttp.Client, rawurl string) (*ProbeResult, error) {
	probeCtx, cancel := context.WithTimeout(ctx, types.ProbeTimeout)
	defer cancel()

	resp, err := client.Head(probeCtx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrProbeFailed, err)
	}
	defer greenhttp.DrainAndClose(resp.Body)

	if err := greenhttp.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrProbeFailed, err)
	}

	finalURL := rawurl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	result := &ProbeResult{
		SupportsRange: acceptsRanges(resp.Header),
		Filename:      utils.FilenameFromResponse(finalURL, resp.Header),
		ContentType:   resp.Header.Get("Content-Type"),
		ETag:          resp.Header.Get("ETag"),
		FinalURL:      finalURL,
	}
	if result.SupportsRange {
		result.FileSize = contentLength(resp)
	}

	logger.Debug("probe complete", logger.Fields{
		"url":            rawurl,
		"size":           result.FileSize,
		"supports_range": result.SupportsRange,
		"filename":       result.Filename,
	})
	return result, nil
}

func acceptsRanges(h http.Header) bool {
	values := h.Values("Accept-Ranges")
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !strings.EqualFold(strings.TrimSpace(v), "none") {
			return true
		}
	}
	return false
}

func contentLength(resp *http.Response) int64 {
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	// HEAD responses may leave ContentLength at -1 while still sending the header.
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
