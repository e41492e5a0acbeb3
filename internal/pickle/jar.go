package pickle

import (
	"archive/zip"
	"context"
	"io"
	"strings"

	"github.com/google/renameio"
	"github.com/klauspost/compress/flate"
)

// newJarWriter returns a zip writer with a faster deflate than the stdlib
// one; pickle jars are written on the critical path of every downstream
// front end.
func newJarWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})
	return zw
}

// writeJar atomically replaces dest with a jar whose entries are produced by
// the add callback handed to fill.
func writeJar(dest string, fill func(add func(name string, data []byte) error) error) error {
	t, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}
	defer t.Cleanup()
	zw := newJarWriter(t)
	add := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	if err := fill(add); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}

// JarFilterExtractor is the built-in pickle extractor: it copies only the
// .sig entries of the input jar. A jar without any .sig entries is copied
// whole, so that downstream type-checking still finds every symbol.
type JarFilterExtractor struct{}

func (JarFilterExtractor) Process(ctx context.Context, inputArchive, outputArchive string) error {
	zr, err := zip.OpenReader(inputArchive)
	if err != nil {
		return err
	}
	defer zr.Close()

	hasSigs := false
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".sig") {
			hasSigs = true
			break
		}
	}

	return writeJar(outputArchive, func(add func(name string, data []byte) error) error {
		for _, f := range zr.File {
			if err := ctx.Err(); err != nil {
				return err
			}
			if hasSigs && !strings.HasSuffix(f.Name, ".sig") {
				continue
			}
			if f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return err
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return err
			}
			if err := add(f.Name, data); err != nil {
				return err
			}
		}
		return nil
	})
}
