package batch

import (
	"context"
	"testing"
	"time"

	"golang.org/x/xerrors"
)

func TestSignalCompleteOnce(t *testing.T) {
	s := newSignal()
	if s.isCompleted() {
		t.Fatalf("fresh signal reports completed")
	}
	s.complete(nil)
	if !s.isCompleted() || s.err() != nil {
		t.Fatalf("completed = %t, err = %v", s.isCompleted(), s.err())
	}
	if s.completeIfPending(xerrors.New("late")) {
		t.Fatalf("completeIfPending resolved an already-completed signal")
	}
	if s.err() != nil {
		t.Fatalf("late completion overwrote the result: %v", s.err())
	}
}

func TestSignalAwait(t *testing.T) {
	s := newSignal()
	want := xerrors.New("compile failed")
	go func() {
		time.Sleep(time.Millisecond)
		s.complete(want)
	}()
	if err := s.await(context.Background()); err != want {
		t.Fatalf("await = %v, want %v", err, want)
	}
	// Awaiting a completed signal returns immediately.
	if err := s.await(context.Background()); err != want {
		t.Fatalf("second await = %v, want %v", err, want)
	}
}

func TestSignalAwaitCanceled(t *testing.T) {
	s := newSignal()
	ctx, canc := context.WithCancel(context.Background())
	canc()
	if err := s.await(ctx); err != context.Canceled {
		t.Fatalf("await on canceled context = %v, want %v", err, context.Canceled)
	}
}
