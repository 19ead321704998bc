package cli

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"segfetch/internal/logger"
	"segfetch/internal/utils"
)

var ErrDestinationBusy = errors.New("another segfetch process is writing this destination")

// destinationLock guards one output path across processes. The lock file lives
// in lockDir so nothing is created next to the user's files.
type destinationLock struct {
	fl *flock.Flock
}

func lockFilePath(lockDir, destination string) string {
	sum := sha1.Sum([]byte(utils.EnsureAbsPath(destination)))
	return filepath.Join(lockDir, "dest-"+hex.EncodeToString(sum[:8])+".lock")
}

// acquireDestinationLock takes the lock without blocking.
func acquireDestinationLock(lockDir, destination string) (*destinationLock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(lockFilePath(lockDir, destination))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrDestinationBusy, destination)
	}
	logger.Debug("destination lock acquired", logger.Fields{"lock": fl.Path(), "destination": destination})
	return &destinationLock{fl: fl}, nil
}

func (l *destinationLock) release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	// The file itself stays: removing it would let a waiter lock a stale inode.
	return l.fl.Unlock()
}
