package concurrent

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segfetch/internal/download/types"
	"segfetch/internal/greenhttp"
	"segfetch/internal/testutil"
)

func newClient(t *testing.T) *greenhttp.Client {
	t.Helper()
	c := greenhttp.Default()
	t.Cleanup(c.Close)
	return c
}

func TestFetchPart_WritesRange(t *testing.T) {
	data := testutil.Payload(10000)
	srv := testutil.NewRangeServer(t, data, testutil.DefaultOptions())
	dir := t.TempDir()

	part := types.PartSpec{Index: 1, Start: 2500, End: 4999, Path: filepath.Join(dir, "nested", "f.p_1.part")}
	var progressed atomic.Int64
	err := FetchPart(context.Background(), newClient(t), srv.URL, part, func(n int64) { progressed.Add(n) })
	require.NoError(t, err)

	got, err := os.ReadFile(part.Path)
	require.NoError(t, err)
	assert.Equal(t, data[2500:5000], got)
	assert.Equal(t, int64(2500), progressed.Load())
	assert.Equal(t, []string{"bytes=2500-4999"}, srv.Ranges())
}

func TestFetchPart_ProgressPerChunk(t *testing.T) {
	data := testutil.Payload(50000)
	srv := testutil.NewRangeServer(t, data, testutil.DefaultOptions())

	f := NewFetcher(newClient(t), &types.RuntimeConfig{WorkerBufferSize: 1024})
	part := types.PartSpec{Index: 0, Start: 0, End: 49999, Path: filepath.Join(t.TempDir(), "p")}

	var calls int
	var sum int64
	require.NoError(t, f.Fetch(context.Background(), srv.URL, part, func(n int64) {
		calls++
		sum += n
		assert.LessOrEqual(t, n, int64(1024))
	}))
	assert.Equal(t, int64(50000), sum)
	assert.GreaterOrEqual(t, calls, 49)
}

func TestFetchPart_ServerError(t *testing.T) {
	opts := testutil.DefaultOptions()
	opts.FailRangeStart = 100
	srv := testutil.NewRangeServer(t, testutil.Payload(1000), opts)

	part := types.PartSpec{Index: 0, Start: 100, End: 199, Path: filepath.Join(t.TempDir(), "p")}
	err := FetchPart(context.Background(), newClient(t), srv.URL, part, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, greenhttp.ErrServerError)
}

func TestFetchPart_RangeIgnored(t *testing.T) {
	opts := testutil.DefaultOptions()
	opts.IgnoreRange = true
	srv := testutil.NewRangeServer(t, testutil.Payload(1000), opts)

	part := types.PartSpec{Index: 1, Start: 500, End: 999, Path: filepath.Join(t.TempDir(), "p")}
	err := FetchPart(context.Background(), newClient(t), srv.URL, part, nil)
	assert.ErrorIs(t, err, types.ErrRangeIgnored)
}

func TestFetchPart_WholeFileAsSinglePart(t *testing.T) {
	opts := testutil.DefaultOptions()
	opts.IgnoreRange = true
	data := testutil.Payload(1000)
	srv := testutil.NewRangeServer(t, data, opts)

	part := types.PartSpec{Index: 0, Start: 0, End: 999, Path: filepath.Join(t.TempDir(), "p")}
	require.NoError(t, FetchPart(context.Background(), newClient(t), srv.URL, part, nil))

	got, err := os.ReadFile(part.Path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFetchPart_ShortBody(t *testing.T) {
	opts := testutil.DefaultOptions()
	opts.TruncateRangeStart = 0
	srv := testutil.NewRangeServer(t, testutil.Payload(1000), opts)

	part := types.PartSpec{Index: 0, Start: 0, End: 499, Path: filepath.Join(t.TempDir(), "p")}
	err := FetchPart(context.Background(), newClient(t), srv.URL, part, nil)
	assert.ErrorIs(t, err, types.ErrShortPart)

	_, statErr := os.Stat(part.Path)
	assert.NoError(t, statErr, "partial part file is kept")
}

func TestFetchPart_Cancelled(t *testing.T) {
	srv := testutil.NewRangeServer(t, testutil.Payload(1000), testutil.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	part := types.PartSpec{Index: 0, Start: 0, End: 99, Path: filepath.Join(t.TempDir(), "p")}
	err := FetchPart(ctx, newClient(t), srv.URL, part, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeParts(t *testing.T, data []byte, n int) []types.PartSpec {
	t.Helper()
	parts, err := Partition(int64(len(data)), n, filepath.Join(t.TempDir(), "out.bin"))
	require.NoError(t, err)
	for _, p := range parts {
		require.NoError(t, os.WriteFile(p.Path, data[p.Start:p.End+1], 0o644))
	}
	return parts
}

func TestMergeParts_InOrder(t *testing.T) {
	data := testutil.Payload(10007)
	parts := writeParts(t, data, 5)

	var buf bytes.Buffer
	n, err := MergeParts(parts, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, buf.Bytes())

	for _, p := range parts {
		_, statErr := os.Stat(p.Path)
		assert.True(t, os.IsNotExist(statErr), "part %d should be removed", p.Index)
	}
}

func TestMergeParts_ShuffledOrderDiffers(t *testing.T) {
	data := testutil.Payload(4000)
	parts := writeParts(t, data, 4)

	shuffled := append([]types.PartSpec(nil), parts...)
	rng := rand.New(rand.NewSource(1))
	for {
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if shuffled[0].Index != 0 || shuffled[1].Index != 1 {
			break
		}
	}

	var buf bytes.Buffer
	_, err := MergeParts(shuffled, &buf)
	require.NoError(t, err)
	assert.Len(t, buf.Bytes(), len(data))
	assert.NotEqual(t, data, buf.Bytes())
}

func TestMergeParts_MissingPart(t *testing.T) {
	data := testutil.Payload(3000)
	parts := writeParts(t, data, 3)
	require.NoError(t, os.Remove(parts[1].Path))

	var buf bytes.Buffer
	n, err := MergeParts(parts, &buf)
	require.ErrorIs(t, err, types.ErrMergeFailed)
	assert.Equal(t, int64(1000), n)
}

func TestAssemble_ReplacesDestination(t *testing.T) {
	data := testutil.Payload(2048)
	parts := writeParts(t, data, 2)
	dest := filepath.Join(filepath.Dir(parts[0].Path), "out.bin")
	require.NoError(t, os.WriteFile(dest, bytes.Repeat([]byte("old"), 5000), 0o644))

	n, err := Assemble(parts, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestConcurrentDownloader_Download(t *testing.T) {
	data := testutil.Payload(10000)
	srv := testutil.NewRangeServer(t, data, testutil.DefaultOptions())
	dest := filepath.Join(t.TempDir(), "out.bin")
	parts, err := Partition(int64(len(data)), 4, dest)
	require.NoError(t, err)

	state := types.NewProgressState(int64(len(data)))
	d := NewConcurrentDownloader("f1", NewFetcher(newClient(t), nil), state)

	var maxSeen atomic.Int64
	require.NoError(t, d.Download(context.Background(), srv.URL, parts, func(total int64) {
		for {
			cur := maxSeen.Load()
			if total <= cur || maxSeen.CompareAndSwap(cur, total) {
				return
			}
		}
	}))

	assert.Equal(t, int64(10000), state.Downloaded.Load())
	assert.Equal(t, int64(10000), maxSeen.Load())
	assert.Len(t, srv.Ranges(), 4)

	_, err = Assemble(parts, dest)
	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestConcurrentDownloader_PartFailure(t *testing.T) {
	data := testutil.Payload(10000)
	opts := testutil.DefaultOptions()
	opts.FailRangeStart = 2500
	srv := testutil.NewRangeServer(t, data, opts)

	parts, err := Partition(int64(len(data)), 4, filepath.Join(t.TempDir(), "out.bin"))
	require.NoError(t, err)

	d := NewConcurrentDownloader("f2", NewFetcher(newClient(t), nil), types.NewProgressState(10000))
	err = d.Download(context.Background(), srv.URL, parts, nil)
	require.ErrorIs(t, err, types.ErrPartFailed)
	assert.ErrorIs(t, err, greenhttp.ErrServerError)
}
