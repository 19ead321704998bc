package concurrent

import (
	"fmt"
	"math"
	"path/filepath"

	"segfetch/internal/download/types"
)

// Partition splits [0,total) into n contiguous parts. Every part has
// total/n bytes except the last, which also takes the remainder. When n
// exceeds total, n is reduced so that no part is empty.
func Partition(total int64, n int, destination string) ([]types.PartSpec, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: cannot partition %d bytes", types.ErrInvalidRequest, total)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: parts must be >= 1, got %d", types.ErrInvalidRequest, n)
	}
	if int64(n) > total {
		n = int(total)
	}

	size := total / int64(n)
	parts := make([]types.PartSpec, n)
	for i := 0; i < n; i++ {
		start := int64(i) * size
		end := start + size - 1
		if i == n-1 {
			end = total - 1
		}
		parts[i] = types.PartSpec{
			Index: i,
			Start: start,
			End:   end,
			Path:  PartPath(destination, i),
		}
	}
	return parts, nil
}

// PartPath names the temporary file for part index next to destination.
func PartPath(destination string, index int) string {
	dir := filepath.Dir(destination)
	name := filepath.Base(destination)
	return filepath.Join(dir, fmt.Sprintf("%s.p_%d%s", name, index, types.PartSuffix))
}

// SuggestParts picks a part count for fileSize when the caller did not ask for one.
// The heuristic favors fewer connections for small files to avoid overhead.
func SuggestParts(fileSize int64, rt *types.RuntimeConfig) int {
	maxConns := rt.GetMaxConnectionsPerHost()
	minChunk := rt.GetMinChunkSize()

	if fileSize <= 0 {
		return 1
	}

	// Square root of the size in MiB, computed in float so small files do not truncate to zero.
	sizeMB := float64(fileSize) / (1024 * 1024)
	workers := int(math.Round(math.Sqrt(sizeMB)))

	// Never plan parts smaller than the minimum chunk.
	if minChunk > 0 {
		maxPossible := int(fileSize / minChunk)
		if maxPossible < 1 {
			maxPossible = 1
		}
		if workers > maxPossible {
			workers = maxPossible
		}
	}

	if workers < 1 {
		return 1
	}
	if workers > maxConns {
		return maxConns
	}
	return workers
}
