// Command factorytwin is the command-line surface of the factory digital
// twin. All simulation logic lives under internal/; this binary only wires
// the root command and maps errors to exit codes.
package main

import (
	"fmt"
	"os"

	"github.com/fennward/factorytwin/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
