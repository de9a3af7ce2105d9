package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/gitlanes/internal/reach"
	"github.com/thiagokokada/gitlanes/internal/render"
)

func LostCmd() *cli.Command {
	return &cli.Command{
		Name:      "lost",
		Usage:     "List commits that become unreachable if references move",
		ArgsUsage: "REF [REF...]",
		Description: "Every REF is moved to --to (deleted when --to is empty). " +
			"Exits with status 2 when any commit would be lost.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "to",
				Usage: "Commit or reference the references move to",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Reachability strategy (heuristic, strict); overrides the configuration",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, json)",
				Value:   "text",
			},
		},
		Action: lostAction,
	}
}

func lostAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("lost: missing reference")
	}
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	strategy := sess.cfg.Strategy()
	if c.IsSet("strategy") {
		if strategy, err = reach.ParseStrategy(c.String("strategy")); err != nil {
			return err
		}
	}

	analyzer := sess.repo.Analyzer(strategy)
	movingTo, err := analyzer.ResolveTarget(c.String("to"))
	if err != nil {
		return err
	}
	queries := make([]reach.Query, 0, c.NArg())
	for _, ref := range c.Args().Slice() {
		queries = append(queries, reach.Query{Ref: ref, MovingTo: movingTo})
	}
	lost, err := analyzer.LostCommitsUnion(queries...)
	if err != nil {
		return err
	}

	w := c.App.Writer
	switch format := c.String("format"); format {
	case "text":
		for _, commit := range lost {
			if _, err := fmt.Fprintf(w, "%s %s\n", commit.ShortID, commit.ShortMessage); err != nil {
				return err
			}
		}
	case "json":
		if err := render.WriteJSON(w, render.CommitDocs(lost)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid format %q (want text or json)", format)
	}
	if len(lost) > 0 {
		return cli.Exit(fmt.Sprintf("%d commit(s) would be lost", len(lost)), exitLost)
	}
	return nil
}
