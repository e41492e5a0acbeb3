package compiler

import "testing"

func TestPhaseOf(t *testing.T) {
	for _, tt := range []struct {
		line string
		want string
		ok   bool
	}{
		{"[running phase parser on Main.scala]", "parser", true},
		{"[running phase pickler on Main.scala]", "pickler", true},
		{"[running phase refchecks on Main.scala]", "refchecks", true},
		{"Main.scala:3: error: not found: value x", "", false},
		{"[loaded package loader scala in 5ms]", "", false},
	} {
		got, ok := phaseOf(tt.line)
		if got != tt.want || ok != tt.ok {
			t.Errorf("phaseOf(%q) = %q, %t; want %q, %t", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}
