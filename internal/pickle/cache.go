// Package pickle maintains the content-addressed cache of exported symbol
// summaries ("pickles") and publishes summary artifacts for produced and
// external classpath entries.
package pickle

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/scalapipe/scalapipe"
)

// Cache maps classpath entries and output directories to their exported
// summary artifact. Artifacts carry the modification time of their source so
// that a persistent cache can tell fresh entries from stale ones.
type Cache struct {
	root       string
	useJar     bool
	persistent bool

	mu     sync.Mutex
	cached map[string]string // source path → cached artifact
}

// Open returns a cache rooted at root. An empty root allocates a fresh
// temporary directory which is removed on process exit; a configured root is
// persistent and retained across runs.
func Open(root string, useJar bool) (*Cache, error) {
	persistent := root != ""
	if persistent {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, err
		}
	} else {
		var err error
		root, err = os.MkdirTemp("", "scalapipe-pickles")
		if err != nil {
			return nil, err
		}
		scalapipe.OnExit(func() error {
			return os.RemoveAll(root)
		})
	}
	return &Cache{
		root:       root,
		useJar:     useJar,
		persistent: persistent,
		cached:     make(map[string]string),
	}, nil
}

func (c *Cache) Root() string     { return c.root }
func (c *Cache) UseJar() bool     { return c.useJar }
func (c *Cache) Persistent() bool { return c.persistent }

// PathFor deterministically mirrors source under the cache root.
func (c *Cache) PathFor(source string) string {
	normalized := strings.TrimPrefix(filepath.Clean(source), string(filepath.Separator))
	p := filepath.Join(c.root, normalized)
	if c.useJar {
		p += ".jar"
	}
	return p
}

// Publish records source → artifact and stamps the artifact with the
// source's modification time, the freshness witness for later runs.
func (c *Cache) Publish(source, artifact string) error {
	if fi, err := os.Stat(source); err == nil {
		if err := os.Chtimes(artifact, fi.ModTime(), fi.ModTime()); err != nil {
			return err
		}
	}
	c.record(source, artifact)
	return nil
}

// record registers the mapping without touching timestamps (used when a
// persistent cache already holds a fresh artifact).
func (c *Cache) record(source, artifact string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached[source] = artifact
}

// Fresh reports whether the cached artifact for source exists and carries
// source's modification time.
func (c *Cache) Fresh(source string) bool {
	src, err := os.Stat(source)
	if err != nil {
		return false
	}
	art, err := os.Stat(c.PathFor(source))
	if err != nil {
		return false
	}
	return art.ModTime().Equal(src.ModTime())
}

// Substitute returns the cached summary artifact for entry, or entry
// unchanged if nothing was published for it.
func (c *Cache) Substitute(entry string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cached[entry]; ok {
		return cached
	}
	return entry
}
