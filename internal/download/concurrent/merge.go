package concurrent

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"segfetch/internal/download/types"
	"segfetch/internal/logger"
)

// MergeParts appends the part files to w in slice order and deletes each one
// after it has been copied. It returns the number of bytes written.
func MergeParts(parts []types.PartSpec, w io.Writer) (int64, error) {
	var total int64
	for _, p := range parts {
		n, err := appendPart(p, w)
		total += n
		if err != nil {
			return total, fmt.Errorf("%w: part %d: %w", types.ErrMergeFailed, p.Index, err)
		}
		if err := os.Remove(p.Path); err != nil {
			logger.Warn("could not remove merged part", logger.Fields{"part": p.Index, "path": p.Path, "error": err})
		}
	}
	return total, nil
}

func appendPart(p types.PartSpec, w io.Writer) (int64, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return io.Copy(w, f)
}

// Assemble replaces destination with the concatenation of parts.
func Assemble(parts []types.PartSpec, destination string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrMergeFailed, err)
	}
	if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("%w: remove existing destination: %w", types.ErrMergeFailed, err)
	}

	out, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: create destination: %w", types.ErrMergeFailed, err)
	}

	n, mergeErr := MergeParts(parts, out)
	if cerr := out.Close(); cerr != nil && mergeErr == nil {
		mergeErr = fmt.Errorf("%w: close destination: %w", types.ErrMergeFailed, cerr)
	}
	return n, mergeErr
}

// RemoveParts deletes whatever part files exist for parts.
func RemoveParts(parts []types.PartSpec) {
	for _, p := range parts {
		if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
			logger.Debug("could not remove part", logger.Fields{"path": p.Path, "error": err})
		}
	}
}
