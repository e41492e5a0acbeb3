package pickle

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPathFor(t *testing.T) {
	tmp := t.TempDir()
	c, err := Open(tmp, false)
	if err != nil {
		t.Fatal(err)
	}
	got := c.PathFor("/work/proj/classes")
	want := filepath.Join(tmp, "work", "proj", "classes")
	if got != want {
		t.Errorf("PathFor = %q, want %q", got, want)
	}

	jarCache, err := Open(filepath.Join(tmp, "jars"), true)
	if err != nil {
		t.Fatal(err)
	}
	if got := jarCache.PathFor("/work/proj/classes"); !filepath.IsAbs(got) || filepath.Ext(got) != ".jar" {
		t.Errorf("PathFor with jar layout = %q, want absolute .jar path", got)
	}
}

func TestPublishStampsModTime(t *testing.T) {
	tmp := t.TempDir()
	c, err := Open(filepath.Join(tmp, "cache"), false)
	if err != nil {
		t.Fatal(err)
	}

	source := filepath.Join(tmp, "lib.jar")
	if err := os.WriteFile(source, []byte("classes"), 0644); err != nil {
		t.Fatal(err)
	}
	// Backdate the source so a mismatched artifact time is detectable.
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(source, old, old); err != nil {
		t.Fatal(err)
	}

	artifact := c.PathFor(source)
	if err := os.MkdirAll(filepath.Dir(artifact), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(artifact, []byte("sigs"), 0644); err != nil {
		t.Fatal(err)
	}
	if c.Fresh(source) {
		t.Fatalf("Fresh before Publish")
	}
	if err := c.Publish(source, artifact); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(artifact)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().Equal(old) {
		t.Errorf("artifact mtime = %v, want %v", fi.ModTime(), old)
	}
	if !c.Fresh(source) {
		t.Errorf("not Fresh after Publish")
	}
}

func TestSubstitute(t *testing.T) {
	tmp := t.TempDir()
	c, err := Open(tmp, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Substitute("/unknown/entry"); got != "/unknown/entry" {
		t.Errorf("Substitute of unpublished entry = %q, want unchanged", got)
	}
	source := filepath.Join(tmp, "src")
	artifact := filepath.Join(tmp, "art")
	for _, fn := range []string{source, artifact} {
		if err := os.WriteFile(fn, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Publish(source, artifact); err != nil {
		t.Fatal(err)
	}
	if got := c.Substitute(source); got != artifact {
		t.Errorf("Substitute = %q, want %q", got, artifact)
	}
}
