package compiler

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/xerrors"
)

// ExecJavac invokes an external javac-style compiler.
type ExecJavac struct {
	Bin string
	// LogPath receives the combined tool output, when set.
	LogPath string
}

func (j *ExecJavac) Compile(ctx context.Context, outputDir string, classpath, files []string) (bool, error) {
	args := []string{"-d", outputDir}
	if len(classpath) > 0 {
		args = append(args, "-classpath", strings.Join(classpath, pathListSeparator))
	}
	args = append(args, files...)
	cmd := exec.CommandContext(ctx, j.Bin, args...)
	if j.LogPath != "" {
		logFile, err := os.OpenFile(j.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return false, err
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, xerrors.Errorf("%v: %w", cmd.Args, err)
	}
	return true, nil
}

// ExecExtractor shells out to an external pickle extractor:
// the tool is invoked as `<bin> <input-archive> <output-archive>`.
type ExecExtractor struct {
	Bin string
}

func (e *ExecExtractor) Process(ctx context.Context, inputArchive, outputArchive string) error {
	cmd := exec.CommandContext(ctx, e.Bin, inputArchive, outputArchive)
	if out, err := cmd.CombinedOutput(); err != nil {
		return xerrors.Errorf("%v: %v: %s", cmd.Args, err, out)
	}
	return nil
}
