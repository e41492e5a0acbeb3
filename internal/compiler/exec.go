package compiler

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"
)

// execFrontend drives an external scalac-compatible compiler process. The
// phase-advance contract is realized over two conventional compiler
// features: -Ypickle-write makes the compiler materialize signature pickles
// into a directory, and -verbose makes it announce each phase on standard
// output. The summary-materialization boundary is the first phase announced
// after the pickler phase.
type execFrontend struct {
	bin      string
	settings *Settings

	pickleDir string
	onPickles func()
	pickles   []Pickle
	reporter  *execReporter
}

// pickler is the phase after which all symbol signatures are known.
const picklerPhase = "pickler"

// NewExecFactory returns a Factory that shells out to bin for every compile.
func NewExecFactory(bin string) Factory {
	return func(s *Settings) (Frontend, error) {
		pickleDir, err := os.MkdirTemp("", "scalapipe-pickles")
		if err != nil {
			return nil, err
		}
		return &execFrontend{
			bin:       bin,
			settings:  s,
			pickleDir: pickleDir,
			reporter:  &execReporter{},
		}, nil
	}
}

func (f *execFrontend) Reporter() Reporter       { return f.reporter }
func (f *execFrontend) OnPicklesReady(fn func()) { f.onPickles = fn }
func (f *execFrontend) Pickles() []Pickle        { return f.pickles }

func (f *execFrontend) Close() error {
	return os.RemoveAll(f.pickleDir)
}

func (f *execFrontend) Compile(ctx context.Context, files []string) error {
	s := f.settings
	args := append([]string(nil), s.Residual...)
	if len(s.Classpath) > 0 {
		args = append(args, "-classpath", strings.Join(s.Classpath, pathListSeparator))
	}
	if len(s.MacroClasspath) > 0 {
		args = append(args, "-Ymacro-classpath", strings.Join(s.MacroClasspath, pathListSeparator))
	}
	for _, p := range s.PluginClasspath {
		args = append(args, "-Xplugin:"+p)
	}
	if s.CacheMacroClassloader {
		args = append(args, "-Ycache-macro-class-loader:last-modified")
	}
	if s.CachePluginClassloader {
		args = append(args, "-Ycache-plugin-class-loader:last-modified")
	}
	args = append(args, "-d", s.OutputDir, "-Ypickle-write", f.pickleDir, "-verbose")
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, f.bin, args...)
	var logFile *os.File
	if s.LogPath != "" {
		var err error
		logFile, err = os.Create(s.LogPath)
		if err != nil {
			return err
		}
		defer logFile.Close()
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return xerrors.Errorf("%v: %w", cmd.Args, err)
	}

	fired := false
	fire := func() {
		if fired {
			return
		}
		fired = true
		f.loadPickles()
		if f.onPickles != nil {
			f.onPickles()
		}
	}
	picklerSeen := false
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if logFile != nil {
			io.WriteString(logFile, line+"\n")
		}
		if phase, ok := phaseOf(line); ok {
			if picklerSeen && phase != picklerPhase {
				fire()
			}
			if phase == picklerPhase {
				picklerSeen = true
			}
		}
	}
	err = cmd.Wait()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// Diagnostics were already written to the log; the exit status
			// is the error report.
			f.reporter.errors = true
			return nil
		}
		return xerrors.Errorf("%v: %w", cmd.Args, err)
	}
	// A successful run materialized all pickles even if the phase output
	// never matched (e.g. a front end without -verbose phase lines).
	fire()
	return nil
}

// phaseOf parses a scalac -verbose phase line, e.g.
// "[running phase pickler on Widget.scala]".
func phaseOf(line string) (string, bool) {
	const prefix = "[running phase "
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(line, prefix)
	if i := strings.Index(rest, " on "); i > 0 {
		return rest[:i], true
	}
	return "", false
}

func (f *execFrontend) loadPickles() {
	var pickles []Pickle
	filepath.Walk(f.pickleDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".sig") {
			return nil
		}
		rel, err := filepath.Rel(f.pickleDir, path)
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		dir, base := filepath.Split(rel)
		var owners []string
		if dir != "" {
			owners = strings.Split(strings.Trim(dir, string(filepath.Separator)), string(filepath.Separator))
		}
		pickles = append(pickles, Pickle{
			Name:   strings.TrimSuffix(base, ".sig"),
			Owners: owners,
			Data:   data,
		})
		return nil
	})
	sort.Slice(pickles, func(i, j int) bool {
		a, b := pickles[i], pickles[j]
		ap := strings.Join(append(append([]string(nil), a.Owners...), a.Name), "/")
		bp := strings.Join(append(append([]string(nil), b.Owners...), b.Name), "/")
		return ap < bp
	})
	f.pickles = pickles
}

type execReporter struct {
	errors bool
}

func (r *execReporter) HasErrors() bool { return r.errors }
func (r *execReporter) Flush()          {}
func (r *execReporter) Finish()         {}
