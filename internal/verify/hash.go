// Package verify computes streaming file digests and compares them against
// expected hex values. Files are read in fixed-size chunks so memory use does
// not grow with file size.
package verify

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	SHA256 Algorithm = "SHA-256"
	SHA1   Algorithm = "SHA-1"
	MD5    Algorithm = "MD5"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 32 * 1024

// ErrUnknownAlgorithm is returned for digest names that are not supported.
var ErrUnknownAlgorithm = errors.New("verify: unknown hash algorithm")

// ParseAlgorithm resolves a user supplied name such as "sha256", "SHA-1" or
// "md5". An empty name selects SHA-256.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)

	switch normalized {
	case "", "SHA256":
		return SHA256, nil
	case "SHA1":
		return SHA1, nil
	case "MD5":
		return MD5, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA256, "":
		return sha256.New(), nil
	case SHA1:
		return sha1.New(), nil
	case MD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

func (a Algorithm) String() string {
	if a == "" {
		return string(SHA256)
	}
	return string(a)
}

// FileDigest streams the file at path once and returns its lowercase hex digest.
func FileDigest(path string, algo Algorithm) (string, error) {
	h, err := algo.New()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, ChunkSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("hashing %s: %w", path, rerr)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify reports whether the digest of path matches expectedHex.
// The comparison ignores case and surrounding whitespace.
func Verify(path, expectedHex string, algo Algorithm) (bool, error) {
	got, err := FileDigest(path, algo)
	if err != nil {
		return false, err
	}
	return got == normalizeHex(expectedHex), nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
