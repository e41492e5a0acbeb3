package batch

import (
	"context"
	"log"
	"sync"
)

// signal is a write-once completion cell with any number of awaiters.
// Completion happens-before every await return, which is what makes the
// pickle cache map readable without further locking downstream.
type signal struct {
	mu        sync.Mutex
	failure   error
	completed bool
	ch        chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

// complete resolves the signal. Completing twice is a bug: callers on paths
// that may race a failure must use completeIfPending.
func (s *signal) complete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		log.Fatalf("BUG: signal completed twice (first: %v, second: %v)", s.failure, err)
	}
	s.completed = true
	s.failure = err
	close(s.ch)
}

// completeIfPending resolves the signal unless it already is, and reports
// whether this call resolved it.
func (s *signal) completeIfPending(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false
	}
	s.completed = true
	s.failure = err
	close(s.ch)
	return true
}

func (s *signal) isCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// err is only meaningful once the signal completed.
func (s *signal) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

func (s *signal) await(ctx context.Context) error {
	select {
	case <-s.ch:
		return s.err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
