// Package types holds the engine-level data model shared by the download
// strategies: task identity, part layout, progress accounting and tuning
// constants.
package types

import (
	"fmt"
	"sync/atomic"
	"time"

	"segfetch/internal/verify"
)

const (
	// PartSuffix terminates every temporary part file name.
	PartSuffix = ".part"

	// WorkerBuffer is the default chunk size used when streaming a body to disk.
	WorkerBuffer = 8 * 1024

	// MinChunk is the smallest part SuggestParts will plan for.
	MinChunk = 2 * 1024 * 1024

	// PerHostMax bounds the connections opened to a single host.
	PerHostMax = 32

	DefaultMaxIdleConns          = 100
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultExpectContinueTimeout = 1 * time.Second
	DialTimeout                  = 15 * time.Second
	KeepAliveDuration            = 30 * time.Second
	ProbeTimeout                 = 30 * time.Second
	MaxRedirects                 = 10
)

// Transport protocol preferences.
const (
	ProtocolAuto  = "auto"
	ProtocolHTTP1 = "http1"
	ProtocolHTTP2 = "http2"
	ProtocolHTTP3 = "http3"
)

// DownloadTask is the immutable description of one download invocation.
type DownloadTask struct {
	FileID       string
	URL          string
	Destination  string
	Parts        int
	ExpectedHash string
	Algorithm    verify.Algorithm
}

// HasHash reports whether the task carries an expected digest.
func (t DownloadTask) HasHash() bool { return t.ExpectedHash != "" }

// PartSpec is one contiguous byte range of the remote file. End is inclusive.
type PartSpec struct {
	Index int
	Start int64
	End   int64
	Path  string
}

// Len returns the number of bytes covered by the part.
func (p PartSpec) Len() int64 { return p.End - p.Start + 1 }

// RangeHeader renders the part as an HTTP Range header value.
func (p PartSpec) RangeHeader() string { return fmt.Sprintf("bytes=%d-%d", p.Start, p.End) }

// ProgressState accumulates bytes received across all parts of a task.
type ProgressState struct {
	Downloaded atomic.Int64
	Total      int64
}

func NewProgressState(total int64) *ProgressState {
	return &ProgressState{Total: total}
}

// Add records n more bytes and returns the new running total.
func (p *ProgressState) Add(n int64) int64 {
	return p.Downloaded.Add(n)
}

// Percent returns downloaded*100/total, capped at 100. Unknown totals report 0.
func (p *ProgressState) Percent() float64 {
	return Percent(p.Downloaded.Load(), p.Total)
}

// Percent computes a completion percentage in [0,100].
func Percent(downloaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	v := float64(downloaded) * 100.0 / float64(total)
	if v > 100 {
		return 100
	}
	return v
}
