// Package cmd is the gitlanes command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/gitlanes/internal/buildinfo"
	"github.com/thiagokokada/gitlanes/internal/config"
	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/git/backend"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/render"
)

// Exit status of lost when commits would become unreachable.
const exitLost = 2

func App() *cli.App {
	return &cli.App{
		Name:    "gitlanes",
		Usage:   "Lay out git history as lanes and check which commits a reference move would lose",
		Version: buildinfo.Read().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"r"},
				Usage:   "Path to the git repository",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default $GITLANES_CONFIG, then .gitlanes.yaml)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Repository backend (gitcli or native); overrides the configuration",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			GraphCmd(),
			LostCmd(),
			ServeCmd(),
			VersionCmd(),
		},
		Before: setupLogging,
		// Errors, exit codes included, are handled by the caller.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Run executes the command line, cancelling on SIGINT or SIGTERM.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return App().RunContext(ctx, os.Args)
}

func setupLogging(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	w := c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

type session struct {
	repo    *git.Repository
	cfg     config.Config
	theme   render.Theme
	palette graph.Palette
}

// openSession resolves the configuration and loads the repository named by
// the global flags.
func openSession(c *cli.Context) (*session, error) {
	repoPath := c.String("repo")
	cfg, cfgPath, err := config.Resolve(c.String("config"), backend.WorktreeRoot(repoPath))
	if err != nil {
		return nil, err
	}
	if cfgPath != "" {
		slog.Debug("loaded config", slog.String("path", cfgPath))
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	theme := render.ThemeFor(cfg.ThemePreference())
	palette := cfg.LanePalette(theme)

	repo, err := git.Open(c.Context, repoPath, git.Options{
		Backend:     cfg.BackendKind(),
		LogArgs:     cfg.Log.Args,
		Filter:      cfg.Filter(),
		Strategy:    cfg.Strategy(),
		PaletteSize: len(palette),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", repoPath, err)
	}
	return &session{repo: repo, cfg: cfg, theme: theme, palette: palette}, nil
}

// module returns the session's repository or the nested submodule at name.
func (s *session) module(name string) (*git.Repository, error) {
	if name == "" {
		return s.repo, nil
	}
	for _, m := range s.repo.Modules() {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no submodule %q", name)
}

// colorEnabled decides whether to emit ANSI colors on w.
func colorEnabled(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		f, ok := w.(*os.File)
		return ok && render.IsTerminal(f) && !color.NoColor, nil
	default:
		return false, fmt.Errorf("invalid color mode %q (want auto, always or never)", mode)
	}
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return render.TerminalWidth(f)
	}
	return 0
}

func gitVersionLine() string {
	v, err := backend.GitVersion()
	if err != nil {
		return fmt.Sprintf("git: unavailable (%v)", err)
	}
	return "git " + v
}
