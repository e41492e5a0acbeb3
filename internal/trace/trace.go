// Package trace records build intervals and writes them as a Chrome trace
// event file (load in chrome://tracing).
package trace

import (
	"encoding/json"

	"github.com/google/renameio"
)

// https://docs.google.com/document/d/1CvAClvFfyA5R-PhYUmn5OOQtYMH4h6I0nSsKchNAySU/edit

// Event is one complete ("ph":"X") interval in the trace.
type Event struct {
	Name           string `json:"name"` // name of the event, as displayed in Trace Viewer
	Categories     string `json:"cat"`  // event categories (comma-separated)
	Type           string `json:"ph"`   // event type (single character)
	ClockTimestamp uint64 `json:"ts"`   // tracing clock timestamp (microsecond granularity)
	Duration       uint64 `json:"dur"`
	Pid            uint64 `json:"pid"` // process ID for the process that output this event
	Tid            uint64 `json:"tid"` // thread ID for the thread that output this event
}

// Trace accumulates events; the scheduler drains all timers into it once
// every project has terminated.
type Trace struct {
	events []Event
}

// Add records one complete event for t. Timers which never ran (zero
// duration) are omitted from the trace.
func (tr *Trace) Add(name, cat string, t *Timer) {
	dur := uint64(t.DurationMicros())
	if dur == 0 {
		return
	}
	tr.events = append(tr.events, Event{
		Name:           name,
		Categories:     cat,
		Type:           "X",
		ClockTimestamp: uint64(t.StartMicros()),
		Duration:       dur,
		Pid:            0,
		Tid:            uint64(t.Tid()),
	})
}

func (tr *Trace) Events() []Event { return tr.events }

// WriteFile atomically writes the trace in Chrome JSON object format.
func (tr *Trace) WriteFile(fn string) error {
	events := tr.events
	if events == nil {
		events = []Event{} // an empty build still yields valid JSON
	}
	b, err := json.Marshal(struct {
		TraceEvents []Event `json:"traceEvents"`
	}{events})
	if err != nil {
		return err
	}
	return renameio.WriteFile(fn, b, 0644)
}
