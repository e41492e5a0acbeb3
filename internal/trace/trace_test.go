package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTraceOmitsZeroDuration(t *testing.T) {
	var ran, idle Timer
	ran.Start()
	time.Sleep(2 * time.Millisecond)
	ran.Stop()

	var tr Trace
	tr.Add("compile-0", "a", &ran)
	tr.Add("javac", "a", &idle)
	if got := len(tr.Events()); got != 1 {
		t.Fatalf("got %d events, want 1 (zero-duration event must be omitted)", got)
	}
	ev := tr.Events()[0]
	if ev.Type != "X" || ev.Pid != 0 {
		t.Errorf("event = %+v, want ph X, pid 0", ev)
	}
	if ev.Duration == 0 {
		t.Errorf("event duration = 0, want > 0")
	}
}

func TestWriteFile(t *testing.T) {
	tmp := t.TempDir()
	fn := filepath.Join(tmp, "build-test.trace")

	var tr Trace
	if err := tr.WriteFile(fn); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		TraceEvents []Event `json:"traceEvents"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("trace is not valid JSON: %v", err)
	}
	if len(decoded.TraceEvents) != 0 {
		t.Errorf("empty trace contains %d events", len(decoded.TraceEvents))
	}
}
