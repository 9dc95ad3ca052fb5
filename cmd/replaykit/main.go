// Command replaykit is the CLI entrypoint for capturing, replaying, and
// diffing AI workflow runs.
package main

import (
	"fmt"
	"os"

	"github.com/replaykit/replaykit/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
