// Package project loads compilation units ("tasks") from argument files and
// computes the three-colored dependency graph between them.
package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"github.com/scalapipe/scalapipe/internal/compiler"
)

// Task is one compilation unit: the front-end options recovered from its
// argument file, with every path canonicalized and classpath globs expanded.
type Task struct {
	Label     string
	ArgsFile  string
	OutputDir string

	SourceFiles     []string
	Classpath       []string
	MacroClasspath  []string
	PluginClasspath []string

	// Residual carries all tokens the driver does not schedule around,
	// verbatim, for the front end.
	Residual []string
}

// Load parses the argument file at path. root anchors the task label
// (typically the directory the args files were discovered under).
func Load(path, root string) (*Task, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := compiler.ParseSettings(strings.Fields(string(b)))
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	outputDir, err := canonical(s.OutputDir)
	if err != nil {
		return nil, xerrors.Errorf("%s: output dir: %w", path, err)
	}
	t := &Task{
		Label:     labelFor(path, root),
		ArgsFile:  path,
		OutputDir: outputDir,
		Residual:  s.Residual,
	}
	for _, f := range s.SourceFiles {
		c, err := canonical(f)
		if err != nil {
			return nil, err
		}
		t.SourceFiles = append(t.SourceFiles, c)
	}
	if t.Classpath, err = expand(s.Classpath); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	if t.MacroClasspath, err = expand(s.MacroClasspath); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	if t.PluginClasspath, err = expand(s.PluginClasspath); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Settings resolves the task back into front-end settings. substitute (may
// be nil) rewrites regular classpath entries, e.g. to point at exported
// pickle artifacts instead of real class files.
func (t *Task) Settings(substitute func(string) string) *compiler.Settings {
	classpath := append([]string(nil), t.Classpath...)
	if substitute != nil {
		for i, entry := range classpath {
			classpath[i] = substitute(entry)
		}
	}
	return &compiler.Settings{
		ArgsFile:        t.ArgsFile,
		OutputDir:       t.OutputDir,
		Classpath:       classpath,
		MacroClasspath:  append([]string(nil), t.MacroClasspath...),
		PluginClasspath: append([]string(nil), t.PluginClasspath...),
		SourceFiles:     append([]string(nil), t.SourceFiles...),
		Residual:        append([]string(nil), t.Residual...),
	}
}

// JavaFiles returns the secondary-language sources of the task.
func (t *Task) JavaFiles() []string {
	var java []string
	for _, f := range t.SourceFiles {
		if strings.HasSuffix(f, ".java") {
			java = append(java, f)
		}
	}
	return java
}

func labelFor(path, root string) string {
	label := path
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			label = rel
		}
	}
	label = strings.TrimSuffix(label, filepath.Ext(label))
	label = strings.Trim(filepath.ToSlash(label), "/.")
	return strings.ReplaceAll(label, "/", "-")
}

// expand canonicalizes classpath entries and expands a trailing * into the
// jars of that directory, sorted.
func expand(entries []string) ([]string, error) {
	var out []string
	for _, entry := range entries {
		if filepath.Base(entry) == "*" {
			jars, err := filepath.Glob(filepath.Join(filepath.Dir(entry), "*.jar"))
			if err != nil {
				return nil, err
			}
			sort.Strings(jars)
			for _, jar := range jars {
				c, err := canonical(jar)
				if err != nil {
					return nil, err
				}
				out = append(out, c)
			}
			continue
		}
		c, err := canonical(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	// Not existing yet (e.g. an output directory): the cleaned absolute
	// path is as canonical as it gets.
	return filepath.Clean(abs), nil
}

// stdlibMarker identifies the standard library itself, which must be
// compiled in one group regardless of size.
const stdlibMarker = "/scala/Predef.scala"

// maxGroupSize bounds how many sources share one front-end run under the
// traditional strategy.
const maxGroupSize = 128

// Partition splits the task's sources into ⌈n/128⌉ groups of roughly equal,
// ceiling-divided size. Pipelining (and the standard library) require a
// single group.
func (t *Task) Partition(forceSingle bool) [][]string {
	sorted := append([]string(nil), t.SourceFiles...)
	sort.Strings(sorted)
	if forceSingle || t.isStdlib() || len(sorted) <= maxGroupSize {
		return [][]string{sorted}
	}
	n := len(sorted)
	groups := (n + maxGroupSize - 1) / maxGroupSize
	size := (n + groups - 1) / groups
	var out [][]string
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, sorted[start:end])
	}
	return out
}

func (t *Task) isStdlib() bool {
	for _, f := range t.SourceFiles {
		if strings.HasSuffix(filepath.ToSlash(f), stdlibMarker) {
			return true
		}
	}
	return false
}
