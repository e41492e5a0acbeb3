package scalapipe

import (
	"testing"

	"golang.org/x/xerrors"
)

func TestCleanupRunsNewestFirstAndAll(t *testing.T) {
	var order []string
	boom := xerrors.New("boom")
	OnExit(func() error {
		order = append(order, "first")
		return xerrors.New("shadowed by the earlier failure")
	})
	OnExit(func() error {
		order = append(order, "second")
		return boom
	})

	err := Cleanup()
	if err != boom {
		t.Errorf("Cleanup = %v, want the first error encountered (%v)", err, boom)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("run order = %v, want [second first]", order)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("OnExit after Cleanup did not panic")
		}
	}()
	OnExit(func() error { return nil })
}
