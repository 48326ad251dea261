// Package main provides the CLI entry point for taffo, which harvests
// numeric annotations from a module description and reports the values
// to convert.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/taffo/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
