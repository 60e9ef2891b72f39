// Command synclog runs event-log scenarios and stress checks.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/synclog/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
