package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"golang.org/x/xerrors"

	"github.com/scalapipe/scalapipe/internal/compiler"
	"github.com/scalapipe/scalapipe/internal/project"
	"github.com/scalapipe/scalapipe/internal/trace"
)

// groupRun is one batch of sources compiled in one front-end run.
type groupRun struct {
	files []string
	timer trace.Timer
	done  *signal
}

// runner drives one task through outline, group compiles and the secondary
// compile. Its observable state is the set of completed signals; every
// terminating path completes outlineDone, every group's done and javaDone
// exactly once.
type runner struct {
	task       *project.Task
	deps       []project.Dep
	dependedOn bool
	s          *sched

	outlineDone *signal
	javaDone    *signal
	groups      []*groupRun

	outlineTimer trace.Timer
	exportTimer  trace.Timer
	javaTimer    trace.Timer

	// Filled after the join by the critical-path pass.
	outlineCriticalPathMillis float64
	regularCriticalPathMillis float64
	fullCriticalPathMillis    float64

	feMu   sync.Mutex
	feInit bool
	fe     compiler.Frontend
	feErr  error

	closeOnce sync.Once
}

func newRunner(s *sched, t *project.Task, deps []project.Dep, dependedOn bool) *runner {
	r := &runner{
		task:        t,
		deps:        deps,
		dependedOn:  dependedOn,
		s:           s,
		outlineDone: newSignal(),
		javaDone:    newSignal(),
	}
	for _, files := range t.Partition(s.opts.Strategy == Pipeline) {
		r.groups = append(r.groups, &groupRun{files: files, done: newSignal()})
	}
	return r
}

// settings resolves front-end settings for this run; under the pipeline
// strategy, classpath entries pointing at other tasks' output directories
// (or at pre-extracted external jars) are replaced by their exported pickle
// artifact.
func (r *runner) settings(logSuffix string) *compiler.Settings {
	var substitute func(string) string
	if r.s.opts.Strategy == Pipeline {
		substitute = r.s.cache.Substitute
	}
	s := r.task.Settings(substitute)
	s.LogPath = filepath.Join(r.s.logDir, r.task.Label+logSuffix+".log")
	s.CacheMacroClassloader = r.s.opts.CacheMacroClassloader
	s.CachePluginClassloader = r.s.opts.CachePluginClassloader
	return s
}

// frontend lazily constructs the task's front end. It is closed exactly
// once, after outline, all groups and the secondary compile have settled.
func (r *runner) frontend() (compiler.Frontend, error) {
	r.feMu.Lock()
	defer r.feMu.Unlock()
	if !r.feInit {
		r.feInit = true
		r.fe, r.feErr = r.s.opts.NewFrontend(r.settings(""))
	}
	return r.fe, r.feErr
}

func (r *runner) closeFrontend() {
	r.closeOnce.Do(func() {
		r.feMu.Lock()
		fe := r.fe
		r.feMu.Unlock()
		if fe != nil {
			if err := fe.Close(); err != nil {
				r.s.opts.Log.Printf("closing compiler for %s: %v", r.task.Label, err)
			}
		}
	})
}

// fail resolves sig with err unless it already resolved, and records the
// run's first failure.
func (r *runner) fail(sig *signal, err error) {
	if sig.completeIfPending(err) {
		r.s.recordFailure(err)
	}
}

// failAll records err into every not-yet-completed signal of the task.
func (r *runner) failAll(err error) {
	r.fail(r.outlineDone, err)
	for _, g := range r.groups {
		r.fail(g.done, err)
	}
	r.fail(r.javaDone, err)
}

// recoverStage converts a panic during a stage into a recorded failure on
// the given signals, keeping the run alive for the remaining tasks.
func (r *runner) recoverStage(sigs ...*signal) {
	if x := recover(); x != nil {
		fmt.Fprintf(os.Stderr, "%s: panic: %v\n%s", r.task.Label, x, debug.Stack())
		err := xerrors.Errorf("%s: internal error: %v", r.task.Label, x)
		for _, sig := range sigs {
			r.fail(sig, err)
		}
	}
}

// run is the per-task chain: wait for every dependency according to its
// class, compile, then the secondary compile, then release the compiler.
func (r *runner) run(ctx context.Context) {
	defer r.closeFrontend()

	for _, dep := range r.deps {
		up := r.s.runners[dep.Target]
		sig := up.javaDone
		if r.s.opts.Strategy == Pipeline && dep.Class == project.Outline {
			// Exported pickles are enough to type-check against; macro and
			// plugin code will be executed, so those wait for classfiles.
			sig = up.outlineDone
		}
		if err := sig.await(ctx); err != nil {
			r.failAll(xerrors.Errorf("%s: dependency %s failed: %v", r.task.Label, dep.Target.Label, err))
			return
		}
	}

	if r.s.opts.Strategy == Traditional || !r.dependedOn {
		// Nobody consumes our pickles: skip the exporting front-end hook.
		r.outlineDone.complete(nil)
		r.fullCompile(ctx)
	} else {
		r.fullCompileExportPickles(ctx)
	}
	for _, g := range r.groups {
		if err := g.done.err(); err != nil {
			// A failed task stays failed; javac never sees its output.
			r.fail(r.javaDone, err)
			return
		}
	}
	r.javaCompile(ctx)
}

// fullCompileExportPickles compiles the single group in the task's lazily
// constructed front end and hooks its phase advance: at the pickler
// boundary, the pickles are exported into the cache and outlineDone
// resolves, releasing downstream front ends while our own back end keeps
// running.
func (r *runner) fullCompileExportPickles(ctx context.Context) {
	g := r.groups[0]
	defer r.recoverStage(r.outlineDone, g.done)

	fe, err := r.frontend()
	if err != nil {
		err = xerrors.Errorf("%s: creating compiler: %w", r.task.Label, err)
		r.fail(r.outlineDone, err)
		r.fail(g.done, err)
		return
	}

	slot, err := r.s.acquire(ctx)
	if err != nil {
		r.fail(r.outlineDone, err)
		r.fail(g.done, err)
		return
	}
	defer r.s.release(slot)
	r.s.disp.set(slot+1, "compiling "+r.task.Label)
	defer r.s.disp.set(slot+1, "idle")

	var exportErr error
	fe.OnPicklesReady(func() {
		r.outlineTimer.Stop()
		r.exportTimer.Start()
		_, err := r.s.exporter.ExportPickles(r.task.OutputDir, fe.Pickles())
		r.exportTimer.Stop()
		if err != nil {
			exportErr = xerrors.Errorf("%s: exporting pickles: %w", r.task.Label, err)
			r.fail(r.outlineDone, exportErr)
			return
		}
		g.timer.Start()
		r.outlineDone.complete(nil)
	})

	r.outlineTimer.Start()
	err = fe.Compile(ctx, g.files)
	if g.timer.Started() && !g.timer.Stopped() {
		g.timer.Stop()
	}
	switch {
	case err != nil:
		err = xerrors.Errorf("%s: %w", r.task.Label, err)
		r.fail(r.outlineDone, err)
		r.fail(g.done, err)
	case exportErr != nil:
		r.fail(g.done, exportErr)
	case fe.Reporter().HasErrors():
		err := xerrors.Errorf("compile of %s failed", r.task.Label)
		r.fail(r.outlineDone, err)
		r.fail(g.done, err)
	default:
		// A conforming front end fired the callback; tolerate one that
		// finished without announcing the boundary.
		r.outlineDone.completeIfPending(nil)
		g.done.complete(nil)
	}
}

// fullCompile compiles each group independently in a freshly constructed
// front end. Groups occupy separate worker slots, so a many-group task
// spreads across the pool.
func (r *runner) fullCompile(ctx context.Context) {
	var wg sync.WaitGroup
	for i, g := range r.groups {
		wg.Add(1)
		go func(i int, g *groupRun) {
			defer wg.Done()
			defer r.recoverStage(g.done)
			r.compileGroup(ctx, i, g)
		}(i, g)
	}
	wg.Wait()
}

func (r *runner) compileGroup(ctx context.Context, i int, g *groupRun) {
	suffix := ""
	if len(r.groups) > 1 {
		suffix = fmt.Sprintf("-%d", i)
	}
	fe, err := r.s.opts.NewFrontend(r.settings(suffix))
	if err != nil {
		r.fail(g.done, xerrors.Errorf("%s: creating compiler: %w", r.task.Label, err))
		return
	}
	defer fe.Close()

	slot, err := r.s.acquire(ctx)
	if err != nil {
		r.fail(g.done, err)
		return
	}
	defer r.s.release(slot)
	r.s.disp.set(slot+1, "compiling "+r.task.Label+suffix)
	defer r.s.disp.set(slot+1, "idle")

	if i == 0 {
		// Nothing is exported here, but the front end still crosses the
		// pickler boundary; the outline timer splits the run there so that
		// the trace shows the same lanes for every task.
		fe.OnPicklesReady(func() {
			r.outlineTimer.Stop()
			g.timer.Start()
		})
		r.outlineTimer.Start()
	} else {
		g.timer.Start()
	}
	err = fe.Compile(ctx, g.files)
	if r.outlineTimer.Started() && !r.outlineTimer.Stopped() {
		r.outlineTimer.Stop()
	}
	if !g.timer.Started() {
		g.timer.Start()
	}
	g.timer.Stop()
	switch {
	case err != nil:
		r.fail(g.done, xerrors.Errorf("%s: %w", r.task.Label, err))
	case fe.Reporter().HasErrors():
		r.fail(g.done, xerrors.Errorf("compile of %s failed", r.task.Label))
	default:
		g.done.complete(nil)
	}
}

// javaCompile hands the secondary-language sources to the external
// compiler, with the task's output directory prepended to its original
// (unsubstituted) classpath.
func (r *runner) javaCompile(ctx context.Context) {
	defer r.recoverStage(r.javaDone)

	java := r.task.JavaFiles()
	if len(java) == 0 {
		r.javaDone.complete(nil)
		return
	}

	slot, err := r.s.acquire(ctx)
	if err != nil {
		r.fail(r.javaDone, err)
		return
	}
	defer r.s.release(slot)
	r.s.disp.set(slot+1, "javac "+r.task.Label)
	defer r.s.disp.set(slot+1, "idle")

	classpath := append([]string{r.task.OutputDir}, r.task.Classpath...)
	r.javaTimer.Start()
	ok, err := r.s.opts.Javac.Compile(ctx, r.task.OutputDir, classpath, java)
	r.javaTimer.Stop()
	switch {
	case err != nil:
		r.fail(r.javaDone, xerrors.Errorf("%s: %w", r.task.Label, err))
	case !ok:
		r.fail(r.javaDone, xerrors.Errorf("javac of %s failed", r.task.Label))
	default:
		r.javaDone.complete(nil)
	}
}

// signals returns every completion signal of the task, in status-row order.
func (r *runner) signals() []*signal {
	sigs := []*signal{r.outlineDone}
	for _, g := range r.groups {
		sigs = append(sigs, g.done)
	}
	return append(sigs, r.javaDone)
}

// statusRow renders the three-character status (outline, groups, java):
// '-' pending, 'x' success, '!' failure.
func (r *runner) statusRow() string {
	groups := byte('x')
	pending := false
	for _, g := range r.groups {
		switch statusChar(g.done) {
		case '!':
			groups = '!'
		case '-':
			pending = true
		}
	}
	if groups != '!' && pending {
		groups = '-'
	}
	return string([]byte{statusChar(r.outlineDone), groups, statusChar(r.javaDone)})
}

func statusChar(s *signal) byte {
	if !s.isCompleted() {
		return '-'
	}
	if s.err() != nil {
		return '!'
	}
	return 'x'
}
