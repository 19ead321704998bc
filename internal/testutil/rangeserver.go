// Package testutil provides an httptest range server for download tests.
package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// ServerOptions shapes how the test server answers.
type ServerOptions struct {
	// NoRanges drops Accept-Ranges and always returns the full body with 200.
	NoRanges bool
	// IgnoreRange advertises ranges but answers range requests with the full body.
	IgnoreRange bool
	// FailRangeStart makes range requests starting at this offset return 500. -1 disables.
	FailRangeStart int64
	// TruncateRangeStart cuts the body of the range starting at this offset in half. -1 disables.
	TruncateRangeStart int64
	// OmitLength drops Content-Length from full-body GET responses.
	OmitLength bool
	// Filename is sent as Content-Disposition when set.
	Filename string
	// HeadStatus overrides the HEAD status code when non-zero.
	HeadStatus int
}

// RangeServer serves one in-memory payload and records the Range headers it saw.
type RangeServer struct {
	*httptest.Server

	data []byte
	opts ServerOptions

	mu     sync.Mutex
	ranges []string
	heads  int
	gets   int
}

// DefaultOptions returns options with all fault injection disabled.
func DefaultOptions() ServerOptions {
	return ServerOptions{FailRangeStart: -1, TruncateRangeStart: -1}
}

// NewRangeServer starts a server for data. It is closed with t.Cleanup.
func NewRangeServer(t testing.TB, data []byte, opts ServerOptions) *RangeServer {
	t.Helper()
	s := &RangeServer{data: data, opts: opts}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Payload builds n deterministic bytes.
func Payload(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte((i*7 + i/251) % 256)
	}
	return buf
}

// Ranges returns the Range headers received so far.
func (s *RangeServer) Ranges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

// Counts returns the number of HEAD and GET requests served.
func (s *RangeServer) Counts() (heads, gets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heads, s.gets
}

func (s *RangeServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.opts.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.opts.Filename))
	}
	if !s.opts.NoRanges {
		w.Header().Set("Accept-Ranges", "bytes")
	}
	w.Header().Set("Content-Type", "application/octet-stream")

	switch r.Method {
	case http.MethodHead:
		s.mu.Lock()
		s.heads++
		s.mu.Unlock()
		if s.opts.HeadStatus != 0 {
			w.WriteHeader(s.opts.HeadStatus)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(s.data)))
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rng := r.Header.Get("Range")
	s.mu.Lock()
	s.gets++
	if rng != "" {
		s.ranges = append(s.ranges, rng)
	}
	s.mu.Unlock()

	if rng == "" || s.opts.NoRanges || s.opts.IgnoreRange {
		if !s.opts.OmitLength {
			w.Header().Set("Content-Length", strconv.Itoa(len(s.data)))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = bytes.NewReader(s.data).WriteTo(w)
		return
	}

	start, end, ok := parseRange(rng, int64(len(s.data)))
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", len(s.data)))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if start == s.opts.FailRangeStart {
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	body := s.data[start : end+1]
	if start == s.opts.TruncateRangeStart {
		body = body[:len(body)/2]
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(s.data)))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(body)
}

func parseRange(h string, size int64) (int64, int64, bool) {
	spec, ok := strings.CutPrefix(h, "bytes=")
	if !ok {
		return 0, 0, false
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	end := size - 1
	if endStr != "" {
		if end, err = strconv.ParseInt(endStr, 10, 64); err != nil {
			return 0, 0, false
		}
	}
	if start < 0 || start > end || end >= size {
		return 0, 0, false
	}
	return start, end, true
}
