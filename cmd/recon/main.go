// Command recon reconciles trade quantities between two datasets.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/recon/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
