package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/gitlanes/internal/server"
)

func ServeCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the layout over HTTP and push updates over a websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; overrides the configuration",
			},
			&cli.BoolFlag{
				Name:  "nowatch",
				Usage: "Disable automatic reload when the repository changes",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Delay before reloading after a change; overrides the configuration",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	opts := server.Options{
		Addr:     sess.cfg.Server.Addr,
		Palette:  sess.palette,
		Strategy: sess.cfg.Strategy(),
		Debounce: sess.cfg.Server.Debounce,
		Watch:    !c.Bool("nowatch"),
	}
	if c.IsSet("addr") {
		opts.Addr = c.String("addr")
	}
	if c.IsSet("debounce") {
		opts.Debounce = c.Duration("debounce")
	}
	return server.New(sess.repo, opts).Run(c.Context)
}
