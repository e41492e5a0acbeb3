package pickle

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/scalapipe/scalapipe/internal/compiler"
	"github.com/scalapipe/scalapipe/internal/trace"
)

// Exporter publishes summary artifacts into the cache: pre-extracted
// external classpath entries before the build starts, and per-project pickle
// exports as each front end crosses the pickler boundary.
type Exporter struct {
	Cache     *Cache
	Extractor compiler.Extractor
	Log       *log.Logger
}

// ExtractExternal strips each external classpath archive down to its symbol
// summaries, unless the cache already holds a fresh artifact. A failure here
// fails the whole run: every downstream front end would read the result.
func (e *Exporter) ExtractExternal(ctx context.Context, entries []string) error {
	var tm trace.Timer
	tm.Start()
	exported := 0
	for _, entry := range entries {
		fi, err := os.Stat(entry)
		if err != nil || fi.IsDir() {
			// Directories on the external classpath are consumed as-is.
			continue
		}
		artifact := e.Cache.PathFor(entry)
		if e.Cache.Fresh(entry) {
			e.Cache.record(entry, artifact)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(artifact), 0755); err != nil {
			return err
		}
		if err := e.Extractor.Process(ctx, entry, artifact); err != nil {
			return xerrors.Errorf("extracting %s: %w", entry, err)
		}
		if err := e.Cache.Publish(entry, artifact); err != nil {
			return err
		}
		exported++
	}
	tm.Stop()
	if exported > 0 {
		e.Log.Printf("Exported pickles for %d external classpath entries in %.0f ms", exported, tm.DurationMillis())
	}
	return nil
}

// ExportPickles writes one .sig file per symbol under a hierarchy mirroring
// the symbol's ownership chain (or the same layout inside a jar), then
// publishes the artifact for outputDir. Symbols sharing one pickle buffer
// are written exactly once.
func (e *Exporter) ExportPickles(outputDir string, pickles []compiler.Pickle) (string, error) {
	sorted := append([]compiler.Pickle(nil), pickles...)
	sort.Slice(sorted, func(i, j int) bool {
		return sigPath(sorted[i]) < sigPath(sorted[j])
	})

	// Companion symbols share their pickle buffer; identity of the byte
	// slice is the dedup key.
	seen := make(map[*byte]bool)
	dedup := sorted[:0]
	for _, p := range sorted {
		if len(p.Data) > 0 {
			key := &p.Data[0]
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		dedup = append(dedup, p)
	}

	artifact := e.Cache.PathFor(outputDir)
	if e.Cache.UseJar() {
		if err := os.MkdirAll(filepath.Dir(artifact), 0755); err != nil {
			return "", err
		}
		if err := writeJar(artifact, func(add func(name string, data []byte) error) error {
			for _, p := range dedup {
				if err := add(sigPath(p), p.Data); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return "", err
		}
	} else {
		for _, p := range dedup {
			fn := filepath.Join(artifact, filepath.FromSlash(sigPath(p)))
			if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
				return "", err
			}
			if err := renameio.WriteFile(fn, p.Data, 0644); err != nil {
				return "", err
			}
		}
		if err := os.MkdirAll(artifact, 0755); err != nil {
			return "", err
		}
	}
	if err := e.Cache.Publish(outputDir, artifact); err != nil {
		return "", err
	}
	return artifact, nil
}

func sigPath(p compiler.Pickle) string {
	if len(p.Owners) == 0 {
		return p.Name + ".sig"
	}
	return strings.Join(p.Owners, "/") + "/" + p.Name + ".sig"
}
