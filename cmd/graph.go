package cmd

import (
	"bytes"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/gitlanes/internal/render"
)

func GraphCmd() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Print the laid-out history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, json)",
				Value:   "text",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Lay out only the newest N commits (0 for all)",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "Colorize output (auto, always, never)",
				Value: "auto",
			},
			&cli.StringFlag{
				Name:  "module",
				Usage: "Show the submodule at this path instead of the main repository",
			},
		},
		Action: graphAction,
	}
}

func graphAction(c *cli.Context) error {
	w := c.App.Writer
	colorOn, err := colorEnabled(c.String("color"), w)
	if err != nil {
		return err
	}
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	repo, err := sess.module(c.String("module"))
	if err != nil {
		return err
	}
	layout := repo.LayoutLimit(c.Int("limit"))

	switch format := c.String("format"); format {
	case "text":
		return render.WriteText(w, layout, render.TextOptions{
			Palette: sess.palette,
			Color:   colorOn,
			Width:   terminalWidth(w),
		})
	case "json":
		doc := render.NewLayoutDocument(layout, sess.palette)
		if !colorOn {
			return render.WriteJSON(w, doc)
		}
		var buf bytes.Buffer
		if err := render.WriteJSON(&buf, doc); err != nil {
			return err
		}
		return render.HighlightJSON(w, buf.Bytes(), sess.theme)
	default:
		return fmt.Errorf("invalid format %q (want text or json)", format)
	}
}
