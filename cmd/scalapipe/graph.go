package main

import (
	"context"
	"flag"
	"fmt"

	"golang.org/x/xerrors"
)

const graphHelp = `scalapipe graph [-flags] <dir>|<args file>...

Parse all projects and print the dependency graph without building.

Example:
  % scalapipe graph ./projects
`

func cmdgraph(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("graph", flag.ExitOnError)
	var (
		dotPath = fset.String("dot", "projects.dot", "path to write the dependency graph to in graphviz format")
	)
	setUsage(fset, graphHelp)
	fset.Parse(args)
	if fset.NArg() == 0 {
		return xerrors.New("syntax: graph <dir>|<args file>...")
	}

	dag, _, err := loadDAG(fset.Args())
	if err != nil {
		return err
	}
	for _, t := range dag.Tasks {
		fmt.Printf("%s (%d sources)\n", t.Label, len(t.SourceFiles))
		for _, dep := range dag.Deps[t] {
			fmt.Printf("  → %s (%s)\n", dep.Target.Label, dep.Class)
		}
	}
	if len(dag.External) > 0 {
		fmt.Printf("external classpath (%d entries):\n", len(dag.External))
		for _, entry := range dag.External {
			fmt.Printf("  %s\n", entry)
		}
	}
	return writeDOT(dag, *dotPath)
}
