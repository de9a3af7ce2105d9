package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// gitEnv keeps output parseable and stops git from touching optional locks
// (such as refreshing the index), which would wake up repository watchers.
var gitEnv = []string{"LC_ALL=C", "GIT_OPTIONAL_LOCKS=0", "GIT_TERMINAL_PROMPT=0"}

// CommandError is a failed git invocation.
type CommandError struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type gitCLI struct {
	path string
}

// OpenCLI checks the installed git and resolves the worktree root containing
// repoPath.
func OpenCLI(ctx context.Context, repoPath string) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	tmp := &gitCLI{path: abs}
	out, err := tmp.runGitCommand(ctx, []string{"rev-parse", "--show-toplevel"}, false, "git rev-parse")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return nil, fmt.Errorf("open repository %s: not inside a worktree", abs)
	}
	return &gitCLI{path: root}, nil
}

func (g *gitCLI) RepoPath() string {
	return g.path
}

// command prepares git to run against the repository root.
func (g *gitCLI) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.path}, args...)...)
	cmd.Env = append(os.Environ(), gitEnv...)
	return cmd
}

// runGitCommand runs git and returns its stdout. With allowExit1 an exit
// status of 1 without stderr output counts as success; git uses it for
// "nothing found" in rev-parse -q, symbolic-ref -q and show-ref.
func (g *gitCLI) runGitCommand(ctx context.Context, args []string, allowExit1 bool, op string) (string, error) {
	if g.path == "" {
		return "", errors.New("repository root not set")
	}
	cmd := g.command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	slog.Debug("git command",
		slog.String("op", op),
		slog.Any("args", args),
		slog.Duration("took", time.Since(start)),
	)
	if err == nil {
		return stdout.String(), nil
	}
	var exitErr *exec.ExitError
	if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
		return stdout.String(), nil
	}
	return "", &CommandError{
		Op:     op,
		Args:   args,
		Stderr: strings.TrimSpace(stderr.String()),
		Err:    err,
	}
}
