package trace

import (
	"log"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// start anchors all trace timestamps to process start.
var start = time.Now()

// A Timer measures one interval with nanosecond resolution and remembers the
// OS thread which stopped it, so that trace events land on the correct lane.
//
// A Timer has a single writer; only the accessors may be used concurrently,
// and only after Stop returned.
type Timer struct {
	begin    time.Time
	beginTS  time.Duration // relative to package start
	duration time.Duration
	tid      int
	started  bool
	stopped  bool
}

func (t *Timer) Start() error {
	if t.started {
		return xerrors.New("timer already started")
	}
	t.started = true
	t.begin = time.Now()
	t.beginTS = time.Since(start)
	return nil
}

func (t *Timer) Stop() error {
	if !t.started {
		return xerrors.New("timer stopped without start")
	}
	if t.stopped {
		return xerrors.New("timer already stopped")
	}
	t.stopped = true
	t.duration = time.Since(t.begin)
	if t.duration < 0 {
		log.Printf("warning: clock went backwards (%v), clamping to 0", t.duration)
		t.duration = 0
	}
	t.tid = unix.Gettid()
	return nil
}

func (t *Timer) Started() bool { return t.started }
func (t *Timer) Stopped() bool { return t.stopped }

// Tid returns the OS thread id recorded by Stop.
func (t *Timer) Tid() int { return t.tid }

func (t *Timer) StartMicros() float64 {
	return float64(t.beginTS) / float64(time.Microsecond)
}

func (t *Timer) DurationMillis() float64 {
	return float64(t.duration) / float64(time.Millisecond)
}

func (t *Timer) DurationMicros() float64 {
	return float64(t.duration) / float64(time.Microsecond)
}
