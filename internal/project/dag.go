package project

import (
	"io"
	"os"
	"strings"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

// Class colors a dependency edge. The class decides what the downstream
// front end needs from the upstream before it may start: exported pickles
// (Outline) or fully materialized class files (Macro and Plugin, whose code
// is loaded and executed during downstream compilation).
type Class int

const (
	Outline Class = iota
	Macro
	Plugin
)

func (c Class) String() string {
	switch c {
	case Macro:
		return "macro"
	case Plugin:
		return "plugin"
	default:
		return "outline"
	}
}

// Dep is one edge of the dependency graph.
type Dep struct {
	Target *Task
	Class  Class
}

// DAG is the dependency graph over all tasks of one run.
type DAG struct {
	Tasks      []*Task
	Deps       map[*Task][]Dep
	DependedOn map[*Task]bool
	// Produces maps each canonical output directory to the task writing it.
	Produces map[string]*Task
	// External lists regular-classpath entries produced by no task and
	// present on disk; under the pipeline strategy, the archives among them
	// are pre-extracted before the build starts.
	External []string

	g     *multi.DirectedGraph
	nodes map[*Task]*dagNode
}

type dagNode struct {
	id   int64
	task *Task
}

func (n *dagNode) ID() int64     { return n.id }
func (n *dagNode) DOTID() string { return n.task.Label }

// depLine carries the edge class into the DOT encoding.
type depLine struct {
	multi.Line
	class Class
}

func (l depLine) Attributes() []encoding.Attribute {
	switch l.class {
	case Macro:
		return []encoding.Attribute{{Key: "label", Value: "M"}}
	case Plugin:
		return []encoding.Attribute{{Key: "label", Value: "P"}}
	}
	return nil
}

// BuildDAG classifies every produced-by relation between tasks. For each
// task the edge list is ordered classpath deps, then macro deps, then plugin
// deps. An upstream already required as a macro is not additionally recorded
// as an outline dep; an upstream reachable as both plugin and regular
// classpath keeps both edges (matching the source tool, see DESIGN.md).
func BuildDAG(tasks []*Task) (*DAG, error) {
	d := &DAG{
		Tasks:      tasks,
		Deps:       make(map[*Task][]Dep),
		DependedOn: make(map[*Task]bool),
		Produces:   make(map[string]*Task),
		g:          multi.NewDirectedGraph(),
		nodes:      make(map[*Task]*dagNode),
	}
	for _, t := range tasks {
		if prev, ok := d.Produces[t.OutputDir]; ok {
			return nil, xerrors.Errorf("tasks %s and %s share output directory %s", prev.Label, t.Label, t.OutputDir)
		}
		d.Produces[t.OutputDir] = t
	}
	for i, t := range tasks {
		n := &dagNode{id: int64(i), task: t}
		d.nodes[t] = n
		d.g.AddNode(n)
	}

	externalSeen := make(map[string]bool)
	for _, t := range tasks {
		macroDeps := d.classify(t, t.MacroClasspath, Macro, nil)
		suppressed := make(map[*Task]bool)
		for _, dep := range macroDeps {
			suppressed[dep.Target] = true
		}
		pluginDeps := d.classify(t, t.PluginClasspath, Plugin, suppressed)
		classpathDeps := d.classify(t, t.Classpath, Outline, suppressed)

		deps := append(append(classpathDeps, macroDeps...), pluginDeps...)
		d.Deps[t] = deps
		for _, dep := range deps {
			d.DependedOn[dep.Target] = true
			d.g.SetLine(depLine{
				Line:  d.g.NewLine(d.nodes[t], d.nodes[dep.Target]).(multi.Line),
				class: dep.Class,
			})
		}

		for _, entry := range t.Classpath {
			if _, produced := d.Produces[entry]; produced || externalSeen[entry] {
				continue
			}
			externalSeen[entry] = true
			if _, err := os.Stat(entry); err == nil {
				d.External = append(d.External, entry)
			}
		}
	}

	if err := d.checkAcyclic(); err != nil {
		return nil, err
	}
	return d, nil
}

// classify emits one dep per distinct producing task found on the entries,
// skipping self references and targets in suppress.
func (d *DAG) classify(t *Task, entries []string, class Class, suppress map[*Task]bool) []Dep {
	var deps []Dep
	seen := make(map[*Task]bool)
	for _, entry := range entries {
		q, ok := d.Produces[entry]
		if !ok || q == t || seen[q] || suppress[q] {
			continue
		}
		seen[q] = true
		deps = append(deps, Dep{Target: q, Class: class})
	}
	return deps
}

func (d *DAG) checkAcyclic() error {
	if _, err := topo.Sort(d.g); err != nil {
		uo, ok := err.(topo.Unorderable)
		if !ok {
			return err
		}
		var cycles []string
		for _, component := range uo {
			var labels []string
			for _, n := range component {
				labels = append(labels, n.(*dagNode).task.Label)
			}
			cycles = append(cycles, strings.Join(labels, " → "))
		}
		return xerrors.Errorf("dependency cycle: %s", strings.Join(cycles, "; "))
	}
	return nil
}

// WriteDOT emits the Graphviz digraph of the dependency graph, edges labeled
// M for macro and P for plugin.
func (d *DAG) WriteDOT(w io.Writer) error {
	b, err := dot.MarshalMulti(d.g, "projects", "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
