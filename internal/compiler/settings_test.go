package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSettings(t *testing.T) {
	tokens := strings.Fields("-deprecation -classpath /lib/a.jar:/lib/b.jar -cp /lib/c.jar " +
		"-Ymacro-classpath /macros/m.jar -Xplugin:/plugins/p.jar " +
		"-d /out src/Main.scala src/Util.java -encoding UTF-8")
	got, err := ParseSettings(tokens)
	if err != nil {
		t.Fatal(err)
	}
	want := &Settings{
		OutputDir:       "/out",
		Classpath:       []string{"/lib/a.jar", "/lib/b.jar", "/lib/c.jar"},
		MacroClasspath:  []string{"/macros/m.jar"},
		PluginClasspath: []string{"/plugins/p.jar"},
		SourceFiles:     []string{"src/Main.scala", "src/Util.java"},
		Residual:        []string{"-deprecation", "-encoding", "UTF-8"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("settings differ: diff (-want +got):\n%s", diff)
	}
}

func TestParseSettingsRequiresOutputDir(t *testing.T) {
	if _, err := ParseSettings([]string{"src/Main.scala"}); err == nil {
		t.Fatalf("missing -d did not fail")
	}
}

func TestParseSettingsConflictingOutputDirs(t *testing.T) {
	if _, err := ParseSettings([]string{"-d", "/a", "-d", "/b"}); err == nil {
		t.Fatalf("conflicting -d did not fail")
	}
}

func TestParseSettingsMissingArgument(t *testing.T) {
	if _, err := ParseSettings([]string{"-classpath"}); err == nil {
		t.Fatalf("trailing -classpath did not fail")
	}
}
