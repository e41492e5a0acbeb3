package project

import (
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func depTask(label, out string) *Task {
	return &Task{Label: label, OutputDir: out}
}

func classes(deps []Dep) []string {
	var got []string
	for _, d := range deps {
		got = append(got, d.Target.Label+":"+d.Class.String())
	}
	return got
}

func TestBuildDAGEdgeClasses(t *testing.T) {
	a := depTask("a", "/out/a")
	b := depTask("b", "/out/b")
	c := depTask("c", "/out/c")
	d := depTask("d", "/out/d")
	d.Classpath = []string{"/out/a", "/out/b", "/out/c", "/ext/missing.jar"}
	d.MacroClasspath = []string{"/out/b"}
	d.PluginClasspath = []string{"/out/c"}

	dag, err := BuildDAG([]*Task{a, b, c, d})
	if err != nil {
		t.Fatal(err)
	}
	// A macro upstream is not additionally an outline dep; a plugin
	// upstream keeps both edges. Order: classpath, macro, plugin.
	want := []string{"a:outline", "c:outline", "b:macro", "c:plugin"}
	if diff := cmp.Diff(want, classes(dag.Deps[d])); diff != "" {
		t.Fatalf("deps of d: diff (-want +got):\n%s", diff)
	}

	for _, up := range []*Task{a, b, c} {
		if !dag.DependedOn[up] {
			t.Errorf("DependedOn[%s] = false, want true", up.Label)
		}
	}
	if dag.DependedOn[d] {
		t.Errorf("DependedOn[d] = true, want false")
	}
	if len(dag.External) != 0 {
		t.Errorf("External = %v, want empty (entry does not exist on disk)", dag.External)
	}
}

func TestBuildDAGSelfReference(t *testing.T) {
	a := depTask("a", "/out/a")
	a.Classpath = []string{"/out/a"}
	dag, err := BuildDAG([]*Task{a})
	if err != nil {
		t.Fatal(err)
	}
	if len(dag.Deps[a]) != 0 {
		t.Errorf("self classpath produced %v", classes(dag.Deps[a]))
	}
}

func TestBuildDAGDuplicateOutputDir(t *testing.T) {
	a := depTask("a", "/out/shared")
	b := depTask("b", "/out/shared")
	if _, err := BuildDAG([]*Task{a, b}); err == nil {
		t.Fatalf("shared output dir did not fail")
	}
}

func TestBuildDAGCycle(t *testing.T) {
	a := depTask("a", "/out/a")
	b := depTask("b", "/out/b")
	a.Classpath = []string{"/out/b"}
	b.Classpath = []string{"/out/a"}
	_, err := BuildDAG([]*Task{a, b})
	if err == nil {
		t.Fatalf("cycle did not fail")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error = %v, want mention of the cycle", err)
	}
}

func TestWriteDOT(t *testing.T) {
	a := depTask("a", "/out/a")
	b := depTask("b", "/out/b")
	c := depTask("c", "/out/c")
	c.Classpath = []string{"/out/a"}
	c.MacroClasspath = []string{"/out/b"}

	dag, err := BuildDAG([]*Task{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := dag.WriteDOT(&sb); err != nil {
		t.Fatal(err)
	}
	dot := sb.String()
	if !strings.Contains(dot, "digraph projects") {
		t.Errorf("missing digraph header:\n%s", dot)
	}
	if !strings.Contains(dot, "label=M") {
		t.Errorf("macro edge not labeled M:\n%s", dot)
	}
	if strings.Contains(dot, "label=P") {
		t.Errorf("unexpected plugin label:\n%s", dot)
	}
}

func TestBuildDAGExternalClasspath(t *testing.T) {
	tmp := t.TempDir()
	ext := tmp + "/dep.jar"
	if err := os.WriteFile(ext, nil, 0644); err != nil {
		t.Fatal(err)
	}
	a := depTask("a", "/out/a")
	a.Classpath = []string{ext, "/does/not/exist.jar"}
	dag, err := BuildDAG([]*Task{a})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{ext}, dag.External); diff != "" {
		t.Fatalf("External: diff (-want +got):\n%s", diff)
	}
}
