// Package compiler defines the narrow contracts under which scalapipe drives
// the external tools: the two-phase front end, the javac-style secondary
// compiler and the pickle extractor. The driver never looks inside these
// tools; everything it needs is expressed here.
package compiler

import "context"

// Reporter mirrors the front end's diagnostics sink.
type Reporter interface {
	HasErrors() bool
	Flush()
	Finish()
}

// Pickle is the exported symbol summary for one symbol: enough for a
// downstream front end to type-check against, nothing more.
type Pickle struct {
	// Name is the symbol name, e.g. "Widget".
	Name string
	// Owners is the ownership chain from the root package downwards,
	// e.g. ["com", "example", "ui"].
	Owners []string
	// Data is the serialized signature. Several symbols may share one
	// buffer (companions); sharing is by slice identity.
	Data []byte
}

// Frontend is one front-end instance for one project (or one group).
//
// The front end must invoke the callback registered via OnPicklesReady
// exactly once per Compile, at the phase boundary after which Pickles
// returns the complete symbol summary table. If Compile returns without the
// callback having fired and the reporter has no errors, the driver treats
// the end of the run as that boundary.
type Frontend interface {
	Reporter() Reporter
	OnPicklesReady(fn func())
	Compile(ctx context.Context, files []string) error
	Pickles() []Pickle
	Close() error
}

// Factory constructs a front end from fully resolved settings.
type Factory func(s *Settings) (Frontend, error)

// Javac is the secondary-language compiler. Compile reports false when the
// tool itself reported compile errors; err covers invocation failures.
type Javac interface {
	Compile(ctx context.Context, outputDir string, classpath, files []string) (bool, error)
}

// Extractor reads an archive and writes a summary-only archive.
type Extractor interface {
	Process(ctx context.Context, inputArchive, outputArchive string) error
}
