package trace

import (
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	var tm Timer
	if tm.Started() || tm.Stopped() {
		t.Fatalf("fresh timer reports started/stopped")
	}
	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	if err := tm.Start(); err == nil {
		t.Fatalf("second Start did not fail")
	}
	time.Sleep(2 * time.Millisecond)
	if err := tm.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := tm.Stop(); err == nil {
		t.Fatalf("second Stop did not fail")
	}
	if got := tm.DurationMillis(); got < 1 {
		t.Errorf("DurationMillis = %v, want >= 1", got)
	}
	if got, want := tm.DurationMicros(), tm.DurationMillis()*1000; got < want-1 || got > want+1 {
		t.Errorf("DurationMicros = %v, want about %v", got, want)
	}
	if tm.Tid() <= 0 {
		t.Errorf("Tid = %d, want > 0", tm.Tid())
	}
}

func TestTimerStopWithoutStart(t *testing.T) {
	var tm Timer
	if err := tm.Stop(); err == nil {
		t.Fatalf("Stop on fresh timer did not fail")
	}
}
