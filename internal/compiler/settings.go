package compiler

import (
	"strings"

	"golang.org/x/xerrors"
)

// Settings is the option set for one front-end instance, recovered from an
// argument file. Only the options the driver schedules around are broken
// out; everything else is carried opaquely in Residual.
type Settings struct {
	ArgsFile  string
	OutputDir string

	Classpath       []string
	MacroClasspath  []string
	PluginClasspath []string
	SourceFiles     []string
	Residual        []string

	// LogPath receives the combined front-end output, when set.
	LogPath string

	CacheMacroClassloader  bool
	CachePluginClassloader bool
}

const pathListSeparator = ":"

// ParseSettings consumes whitespace-separated argument-file tokens. The
// single output directory option is required.
func ParseSettings(tokens []string) (*Settings, error) {
	s := &Settings{}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		next := func(opt string) (string, error) {
			if i+1 >= len(tokens) {
				return "", xerrors.Errorf("option %s is missing its argument", opt)
			}
			i++
			return tokens[i], nil
		}
		switch {
		case tok == "-classpath" || tok == "-cp":
			arg, err := next(tok)
			if err != nil {
				return nil, err
			}
			s.Classpath = append(s.Classpath, splitPathList(arg)...)
		case tok == "-Ymacro-classpath":
			arg, err := next(tok)
			if err != nil {
				return nil, err
			}
			s.MacroClasspath = append(s.MacroClasspath, splitPathList(arg)...)
		case strings.HasPrefix(tok, "-Xplugin:"):
			s.PluginClasspath = append(s.PluginClasspath, splitPathList(strings.TrimPrefix(tok, "-Xplugin:"))...)
		case tok == "-d":
			arg, err := next(tok)
			if err != nil {
				return nil, err
			}
			if s.OutputDir != "" && s.OutputDir != arg {
				return nil, xerrors.Errorf("conflicting output directories %q and %q", s.OutputDir, arg)
			}
			s.OutputDir = arg
		case !strings.HasPrefix(tok, "-") && isSourceFile(tok):
			s.SourceFiles = append(s.SourceFiles, tok)
		default:
			s.Residual = append(s.Residual, tok)
		}
	}
	if s.OutputDir == "" {
		return nil, xerrors.New("no output directory (-d) specified")
	}
	return s, nil
}

func isSourceFile(tok string) bool {
	return strings.HasSuffix(tok, ".scala") || strings.HasSuffix(tok, ".java")
}

func splitPathList(arg string) []string {
	var out []string
	for _, entry := range strings.Split(arg, pathListSeparator) {
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
