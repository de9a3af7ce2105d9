package backend

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

// createTestRepo initializes a repository with a branch point and a tag using
// the real git executable.
func createTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not found")
	}
	dir := t.TempDir()
	git := func(args ...string) string {
		t.Helper()
		full := append([]string{
			"-C", dir,
			"-c", "user.name=Alice",
			"-c", "user.email=alice@example.com",
			"-c", "init.defaultBranch=main",
			"-c", "commit.gpgsign=false",
			"-c", "tag.gpgsign=false",
		}, args...)
		out, err := exec.Command("git", full...).CombinedOutput()
		if err != nil {
			t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, out)
		}
		return strings.TrimSpace(string(out))
	}
	git("init", "-q")
	git("commit", "-q", "--allow-empty", "-m", "root")
	git("commit", "-q", "--allow-empty", "-m", "second\n\nwith body")
	git("tag", "-a", "v1", "-m", "release v1")
	git("checkout", "-q", "-b", "topic", "HEAD~1")
	git("commit", "-q", "--allow-empty", "-m", "topic work")
	git("checkout", "-q", "main")
	return dir
}

func TestGitCLIAgainstRealRepository(t *testing.T) {
	t.Parallel()

	dir := createTestRepo(t)
	ctx := context.Background()
	be, err := OpenCLI(ctx, dir)
	if err != nil {
		t.Fatalf("OpenCLI: %v", err)
	}

	head, err := be.HeadState(ctx)
	if err != nil {
		t.Fatalf("HeadState: %v", err)
	}
	if head.Branch != "main" || len(head.Hash) != 40 {
		t.Fatalf("unexpected head: %+v", head)
	}

	list, err := be.ListRefs(ctx)
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	index := refs.NewIndex(refs.Snapshot{Refs: list, Head: head})
	tagged, err := index.Resolve("v1")
	if err != nil {
		t.Fatalf("resolve v1: %v", err)
	}
	if tagged != head.Hash {
		t.Fatalf("annotated tag should peel to %s, got %s", head.Hash, tagged)
	}

	stream, err := be.Log(ctx, []string{"--topo-order", "--all"})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	records, err := ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 commits, got %d", len(records))
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	store := commitstore.New()
	if _, err := store.Ingest(records); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	second, err := store.Get(head.Hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.ShortMessage != "second" || second.FullMessage != "second\n\nwith body" {
		t.Fatalf("unexpected messages: %q / %q", second.ShortMessage, second.FullMessage)
	}

	merging, err := be.HasMergeHead(ctx)
	if err != nil || merging {
		t.Fatalf("HasMergeHead = %v, %v", merging, err)
	}
	subs, err := be.Submodules(ctx)
	if err != nil || len(subs) != 0 {
		t.Fatalf("Submodules = %+v, %v", subs, err)
	}
	if _, ok, err := be.SubmodulePointer(ctx, "HEAD", "lib"); err != nil || ok {
		t.Fatalf("SubmodulePointer = %v, %v", ok, err)
	}
}

func TestGitCLILogStopsEarly(t *testing.T) {
	t.Parallel()

	dir := createTestRepo(t)
	ctx := context.Background()
	be, err := OpenCLI(ctx, dir)
	if err != nil {
		t.Fatalf("OpenCLI: %v", err)
	}
	stream, err := be.Log(ctx, []string{"--all"})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if _, err := stream.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close after partial read: %v", err)
	}
}

func TestGitCLICommandError(t *testing.T) {
	t.Parallel()

	dir := createTestRepo(t)
	ctx := context.Background()
	be, err := OpenCLI(ctx, dir)
	if err != nil {
		t.Fatalf("OpenCLI: %v", err)
	}
	_, _, err = be.SubmodulePointer(ctx, "no-such-rev", "lib")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("SubmodulePointer error = %v, want *CommandError", err)
	}
	if cmdErr.Op != "git ls-tree" || cmdErr.Stderr == "" {
		t.Fatalf("CommandError = %+v", cmdErr)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("CommandError should unwrap to *exec.ExitError, got %T", cmdErr.Err)
	}

	if _, err := OpenCLI(ctx, t.TempDir()); err == nil {
		t.Fatal("OpenCLI outside a repository should fail")
	}
}
