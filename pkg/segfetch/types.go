package segfetch

import (
	"segfetch/internal/download"
	"segfetch/internal/state"
	"segfetch/internal/verify"
)

// Re-exported request and result types for consumers.
type Request = download.Request
type Result = download.Result
type Algorithm = verify.Algorithm
type HistoryEntry = state.Entry

const (
	SHA256 = verify.SHA256
	SHA1   = verify.SHA1
	MD5    = verify.MD5
)

// ParseAlgorithm resolves names such as "sha256" or "MD5".
func ParseAlgorithm(name string) (Algorithm, error) {
	return verify.ParseAlgorithm(name)
}
