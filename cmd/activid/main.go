// Command activid serves digital wedding invitations and collects guest wishes.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/meimodev/activid-web-sub001/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// ExitErrors were already reported by the command.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
