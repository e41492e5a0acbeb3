// Package buildtest contains helpers shared by the scalapipe tests.
package buildtest

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parent directories) with the given
// contents, failing the test on error.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}
