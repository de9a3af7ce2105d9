package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/gitlanes/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			if msg := err.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "gitlanes: %s\n", msg)
			}
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "gitlanes: %v\n", err)
		os.Exit(1)
	}
}
