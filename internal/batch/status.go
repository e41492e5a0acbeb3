package batch

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var isTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}()

// statusInterval bounds how often set repaints; compile callbacks can fire
// far faster than a terminal is worth updating.
const statusInterval = 100 * time.Millisecond

// display keeps one in-place status row per worker slot plus a summary row
// (row 0), repainted over themselves on a terminal. Off a terminal it does
// nothing; the 60-second monitor log lines are the record there.
type display struct {
	mu    sync.Mutex
	rows  []string
	drawn int // rows currently on screen
	last  time.Time
}

func newDisplay(rows int) *display {
	return &display{rows: make([]string, rows)}
}

// set replaces one row and repaints, unless the last paint was under
// statusInterval ago.
func (d *display) set(row int, text string) {
	if !isTerminal {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows[row] = text
	if time.Since(d.last) < statusInterval {
		return
	}
	d.paint()
}

// redraw repaints unconditionally, e.g. after a log line scrolled the
// screen.
func (d *display) redraw() {
	if !isTerminal {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paint()
}

// paint moves the cursor back over the previously drawn block, then writes
// every row with an erase-line prefix so shorter text leaves no artifacts.
// The whole frame goes out in one write to keep it tear-free.
func (d *display) paint() {
	d.last = time.Now()
	var frame strings.Builder
	if d.drawn > 0 {
		fmt.Fprintf(&frame, "\033[%dA", d.drawn)
	}
	for _, row := range d.rows {
		frame.WriteString("\033[2K")
		frame.WriteString(row)
		frame.WriteByte('\n')
	}
	os.Stdout.WriteString(frame.String())
	d.drawn = len(d.rows)
}
