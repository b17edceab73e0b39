// Command ptgcalc evaluates spreadsheet formulas from the command line and
// keeps workbook snapshots in a SQLite database.
package main

import (
	"fmt"
	"io"
	"os"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetIn(stdin)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "ptgcalc: %v\n", err)
		return 1
	}
	return 0
}
