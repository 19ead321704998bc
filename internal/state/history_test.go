package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segfetch/internal/events"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_StartAndFinish(t *testing.T) {
	s := openTestStore(t)
	dest := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(dest, make([]byte, 1234), 0o644))

	require.NoError(t, s.RecordStart(events.Start{FileID: "a", URL: "http://x/file.bin", Destination: dest, Parts: 4}))

	e, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, e.Status)
	assert.Equal(t, "file.bin", e.Filename)
	assert.Equal(t, 4, e.Parts)
	assert.True(t, e.CompletedAt.IsZero())

	require.NoError(t, s.RecordFinish(events.Finish{FileID: "a", Status: events.StatusSuccess}))
	e, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, int64(1234), e.TotalSize)
	assert.False(t, e.CompletedAt.IsZero())
	assert.GreaterOrEqual(t, e.TimeTaken, time.Duration(0))
}

func TestStore_FailureAndMissing(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordStart(events.Start{FileID: "b", URL: "http://x", Destination: "/nowhere/b.bin", Parts: 2}))
	require.NoError(t, s.RecordFinish(events.Finish{FileID: "b", Status: events.StatusFailure}))

	e, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, e.Status)
	assert.Zero(t, e.TotalSize)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.RecordFinish(events.Finish{FileID: "missing"}), ErrNotFound)
}

func TestStore_ListAndClear(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"one", "two", "three"} {
		require.NoError(t, s.RecordStart(events.Start{FileID: id, URL: "http://x/" + id, Destination: "/tmp/" + id, Parts: 1}))
		time.Sleep(2 * time.Millisecond)
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].ID)

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	n, err := s.Clear()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err = s.List(0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_AttachRecordsBusEvents(t *testing.T) {
	s := openTestStore(t)
	bus := events.NewBus(2)
	detach := s.Attach(bus)

	dest := filepath.Join(t.TempDir(), "x.bin")
	require.NoError(t, os.WriteFile(dest, []byte("abc"), 0o644))

	bus.Publish(events.Start{FileID: "bus-1", URL: "http://x", Destination: dest, Parts: 3})
	bus.Publish(events.ProgressUpdate{FileID: "bus-1", Percent: 50})
	bus.Publish(events.Finish{FileID: "bus-1", Status: events.StatusSuccess})
	bus.Close()
	detach()

	e, err := s.Get("bus-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, int64(3), e.TotalSize)
}

func TestStore_CloseTwice(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
