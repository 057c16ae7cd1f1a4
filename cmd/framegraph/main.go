// Command framegraph runs, tests and inspects frame task graph scenarios.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/framegraph/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
