// Package batch schedules all tasks of one run over a fixed-size worker
// pool, overlapping downstream front ends with upstream back ends when the
// pipeline strategy is active.
package batch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/scalapipe/scalapipe/internal/compiler"
	"github.com/scalapipe/scalapipe/internal/pickle"
	"github.com/scalapipe/scalapipe/internal/project"
	"github.com/scalapipe/scalapipe/internal/trace"
)

// Strategy selects the wait policy between dependent tasks.
type Strategy int

const (
	// Pipeline starts a downstream front end as soon as every upstream has
	// exported its pickles (macro and plugin deps still wait for full
	// completion: their code gets executed downstream).
	Pipeline Strategy = iota
	// Traditional waits for full upstream completion on every edge.
	Traditional
)

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "pipeline":
		return Pipeline, nil
	case "traditional":
		return Traditional, nil
	}
	return 0, xerrors.Errorf("unknown strategy %q (want pipeline or traditional)", s)
}

// stallProbe is how long the monitor waits between progress checks.
const stallProbe = 60 * time.Second

// Options configures one Run.
type Options struct {
	Strategy    Strategy
	Jobs        int
	Label       string // embedded in the trace file name
	TraceDir    string // "" disables trace output
	LogDir      string // "" allocates a temporary directory
	Log         *log.Logger
	NewFrontend compiler.Factory
	Javac       compiler.Javac
	Extractor   compiler.Extractor
	Cache       *pickle.Cache

	CacheMacroClassloader  bool
	CachePluginClassloader bool
}

type sched struct {
	opts     Options
	cache    *pickle.Cache
	exporter *pickle.Exporter
	logDir   string

	runners map[*project.Task]*runner
	tasks   []*project.Task

	slots chan int
	disp  *display

	failMu   sync.Mutex
	firstErr error
}

// Run executes every task of the DAG and returns the first failure, after
// all in-flight work drained and every compiler was closed.
func Run(ctx context.Context, dag *project.DAG, opts Options) error {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Log == nil {
		opts.Log = log.New(os.Stderr, "", log.LstdFlags)
	}
	logDir := opts.LogDir
	if logDir == "" {
		var err error
		logDir, err = os.MkdirTemp("", "scalapipe-logs")
		if err != nil {
			return err
		}
	} else if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	s := &sched{
		opts:    opts,
		cache:   opts.Cache,
		logDir:  logDir,
		runners: make(map[*project.Task]*runner),
		tasks:   dag.Tasks,
		slots:   make(chan int, opts.Jobs),
		disp:    newDisplay(opts.Jobs + 1),
	}
	for i := 0; i < opts.Jobs; i++ {
		s.slots <- i
	}
	s.exporter = &pickle.Exporter{Cache: s.cache, Extractor: opts.Extractor, Log: opts.Log}

	if opts.Strategy == Pipeline {
		// Single-threaded pre-scan before any runner starts; a failure here
		// fails the run (every downstream would read the result).
		if err := s.exporter.ExtractExternal(ctx, dag.External); err != nil {
			return err
		}
	}

	for _, t := range dag.Tasks {
		s.runners[t] = newRunner(s, t, dag.Deps[t], dag.DependedOn[t])
	}

	begin := time.Now()
	var eg errgroup.Group
	for _, t := range dag.Tasks {
		r := s.runners[t]
		eg.Go(func() error {
			defer exitOnPanic()
			r.run(ctx)
			return nil
		})
	}

	joined := make(chan struct{})
	go func() {
		defer exitOnPanic()
		eg.Wait()
		close(joined)
	}()
	s.monitor(joined)
	wall := time.Since(begin)

	succeeded := 0
	for _, t := range s.tasks {
		if s.runners[t].javaDone.err() == nil {
			succeeded++
		}
	}
	s.opts.Log.Printf("%d of %d tasks succeeded in %v", succeeded, len(s.tasks), wall.Round(time.Millisecond))

	s.criticalPaths(wall)

	if opts.TraceDir != "" {
		if err := s.writeTrace(); err != nil {
			s.opts.Log.Printf("writing trace: %v", err)
		}
	}

	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.firstErr
}

// exitOnPanic is the worker-pool panic handler: anything escaping the
// per-stage recovery is unrecoverable driver state.
func exitOnPanic() {
	if x := recover(); x != nil {
		fmt.Fprintf(os.Stderr, "uncaught worker panic: %v\n%s", x, debug.Stack())
		os.Exit(-1)
	}
}

func (s *sched) recordFailure(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if s.firstErr == nil {
		s.firstErr = err
	}
}

// acquire reserves a worker slot for compile work. Waits on dependency
// signals never hold a slot; only front-end and javac invocations do.
func (s *sched) acquire(ctx context.Context) (int, error) {
	select {
	case slot := <-s.slots:
		return slot, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *sched) release(slot int) {
	s.slots <- slot
}

// monitor awaits completion of all signals, probing every 60 seconds: if
// signals completed since the last probe it prints one progress line,
// otherwise a stall report with one status row per task.
func (s *sched) monitor(joined <-chan struct{}) {
	total := 0
	for _, t := range s.tasks {
		total += len(s.runners[t].signals())
	}
	last := 0
	for {
		select {
		case <-joined:
			s.opts.Log.Printf("progress: %d of %d signals completed", s.completedSignals(), total)
			return
		case <-time.After(stallProbe):
			n := s.completedSignals()
			if n > last {
				s.opts.Log.Printf("progress: %d of %d signals completed", n, total)
				s.disp.set(0, fmt.Sprintf("%d of %d signals completed", n, total))
			} else {
				s.opts.Log.Printf("no progress in %v; task status (outline/compile/java):", stallProbe)
				for _, t := range s.tasks {
					s.opts.Log.Printf("  %s %s", s.runners[t].statusRow(), t.Label)
				}
				s.disp.redraw()
			}
			last = n
		}
	}
}

func (s *sched) completedSignals() int {
	n := 0
	for _, t := range s.tasks {
		for _, sig := range s.runners[t].signals() {
			if sig.isCompleted() {
				n++
			}
		}
	}
	return n
}

// writeTrace drains every timer into one Chrome trace file named after the
// run label.
func (s *sched) writeTrace() error {
	var tr trace.Trace
	for _, t := range s.tasks {
		r := s.runners[t]
		tr.Add("parser-to-pickler", t.Label, &r.outlineTimer)
		tr.Add("pickle-export", t.Label, &r.exportTimer)
		for i, g := range r.groups {
			tr.Add(fmt.Sprintf("compile-%d", i), t.Label, &g.timer)
		}
		if len(t.JavaFiles()) > 0 {
			tr.Add("javac", t.Label, &r.javaTimer)
		}
	}
	fn := filepath.Join(s.opts.TraceDir, "build-"+s.opts.Label+".trace")
	if err := tr.WriteFile(fn); err != nil {
		return err
	}
	s.opts.Log.Printf("wrote trace to %s", fn)
	return nil
}
