package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/scalapipe/scalapipe/internal/batch"
	"github.com/scalapipe/scalapipe/internal/compiler"
	"github.com/scalapipe/scalapipe/internal/env"
	"github.com/scalapipe/scalapipe/internal/pickle"
	"github.com/scalapipe/scalapipe/internal/project"
)

const buildHelp = `scalapipe build [-flags] <dir>|<args file>...

Compile all projects, overlapping dependent front ends: a downstream project
starts type-checking as soon as its upstreams exported their pickles.

A single directory argument is scanned recursively for *.args files;
otherwise the arguments name the args files directly.

Example:
  % scalapipe build ./projects
`

// argsExt is the conventional argument-file extension.
const argsExt = ".args"

func cmdbuild(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		strategy    = fset.String("strategy", env.Strategy, "pipeline or traditional")
		jobs        = fset.Int("jobs", env.Parallelism, "number of parallel compile jobs to run")
		pickleCache = fset.String("pickle_cache", env.PickleCache, "pickle cache directory (empty: fresh temporary directory, removed on exit)")
		useJar      = fset.Bool("use_jar", env.UseJar, "store exported pickles as jars instead of directory trees")
		cacheMacro  = fset.Bool("cache_macro_classloader", env.CacheMacroClassloader, "let the front end cache macro classloaders")
		cachePlugin = fset.Bool("cache_plugin_classloader", env.CachePluginClassloader, "let the front end cache plugin classloaders")
		traceDir    = fset.String("trace_dir", ".", "directory to write the build-<label>.trace chrome trace file to")
		dotPath     = fset.String("dot", "projects.dot", "path to write the dependency graph to in graphviz format")
	)
	setUsage(fset, buildHelp)
	fset.Parse(args)
	if fset.NArg() == 0 {
		return xerrors.New("syntax: build <dir>|<args file>...")
	}

	strat, err := batch.ParseStrategy(*strategy)
	if err != nil {
		return err
	}

	dag, label, err := loadDAG(fset.Args())
	if err != nil {
		return err
	}
	if err := writeDOT(dag, *dotPath); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	cache, err := pickle.Open(*pickleCache, *useJar)
	if err != nil {
		return err
	}
	if cache.Persistent() {
		logger.Printf("using persistent pickle cache at %s", cache.Root())
	} else {
		logger.Printf("pickle cache at %s (removed on exit)", cache.Root())
	}

	var extractor compiler.Extractor = pickle.JarFilterExtractor{}
	if env.Extractor != "" {
		extractor = &compiler.ExecExtractor{Bin: env.Extractor}
	}

	return batch.Run(ctx, dag, batch.Options{
		Strategy:               strat,
		Jobs:                   *jobs,
		Label:                  label,
		TraceDir:               *traceDir,
		Log:                    logger,
		NewFrontend:            compiler.NewExecFactory(env.Compiler),
		Javac:                  &compiler.ExecJavac{Bin: env.Javac},
		Extractor:              extractor,
		Cache:                  cache,
		CacheMacroClassloader:  *cacheMacro,
		CachePluginClassloader: *cachePlugin,
	})
}

// loadDAG expands the positional arguments into args files, parses every
// project and classifies the dependency graph.
func loadDAG(args []string) (*project.DAG, string, error) {
	files := args
	label := "build"
	root := ""
	if len(args) == 1 {
		if fi, err := os.Stat(args[0]); err == nil && fi.IsDir() {
			root = args[0]
			label = filepath.Base(args[0])
			files = nil
			err := filepath.WalkDir(args[0], func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && strings.HasSuffix(path, argsExt) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, "", err
			}
			sort.Strings(files)
		}
	}

	var tasks []*project.Task
	for _, fn := range files {
		t, err := project.Load(fn, root)
		if err != nil {
			return nil, "", err
		}
		tasks = append(tasks, t)
	}
	dag, err := project.BuildDAG(tasks)
	if err != nil {
		return nil, "", err
	}
	return dag, label, nil
}

func writeDOT(dag *project.DAG, path string) error {
	var sb strings.Builder
	if err := dag.WriteDOT(&sb); err != nil {
		return err
	}
	return renameio.WriteFile(path, []byte(sb.String()), 0644)
}
