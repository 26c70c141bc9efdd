// Command iseven decides whether a 32-bit number is even.
package main

import (
	"context"
	"os"

	"github.com/roach88/iseven/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
