package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/gitlanes/internal/buildinfo"
	"github.com/thiagokokada/gitlanes/internal/git/backend"
)

func VersionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer, "gitlanes %s\n%s (minimum %s)\n",
				buildinfo.Read(), gitVersionLine(), backend.MinGitVersion())
			return err
		},
	}
}
