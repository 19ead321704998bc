package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"segfetch/internal/logger"
)

// shutdownCoordinator runs a cleanup function at most once, whichever of a
// signal or normal completion gets there first.
type shutdownCoordinator struct {
	once sync.Once
	err  error
	fn   func() error
}

func newShutdownCoordinator(fn func() error) *shutdownCoordinator {
	return &shutdownCoordinator{fn: fn}
}

func (s *shutdownCoordinator) execute(reason string) error {
	s.once.Do(func() {
		logger.Debug("executing graceful shutdown", logger.Fields{"reason": reason})
		if s.fn == nil {
			return
		}
		if err := s.fn(); err != nil {
			s.err = fmt.Errorf("graceful shutdown failed: %w", err)
		}
	})
	return s.err
}

// withSignals returns a context cancelled on SIGINT, SIGTERM or SIGHUP.
// Cancelling it fails the running download, which publishes Finish(FAILURE).
func withSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, cancelling download", logger.Fields{"signal": sig.String()})
			cancel()
		case <-done:
		}
	}()

	var stopOnce sync.Once
	return ctx, func() {
		stopOnce.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
}
