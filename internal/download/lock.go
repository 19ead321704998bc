package download

import "sync"

// destinationLocks serializes tasks that write the same destination path.
type destinationLocks struct {
	mu    sync.Mutex
	locks map[string]*destinationLock
}

type destinationLock struct {
	mu   sync.Mutex
	refs int
}

func newDestinationLocks() *destinationLocks {
	return &destinationLocks{locks: make(map[string]*destinationLock)}
}

// acquire blocks until path is free and returns the release func.
func (l *destinationLocks) acquire(path string) func() {
	l.mu.Lock()
	entry, ok := l.locks[path]
	if !ok {
		entry = &destinationLock{}
		l.locks[path] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, path)
		}
		l.mu.Unlock()
	}
}
