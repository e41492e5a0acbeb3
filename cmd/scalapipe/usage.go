package main

import (
	"flag"
	"fmt"
	"os"
)

// setUsage wires a verb's help text into its flag set.
func setUsage(fset *flag.FlagSet, help string) {
	fset.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		fset.PrintDefaults()
	}
}
