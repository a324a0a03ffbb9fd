// Command artisync reconciles the artifacts declared in a repository with
// their persisted representation.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/artisync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
