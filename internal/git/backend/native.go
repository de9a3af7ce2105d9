package backend

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

// rfc2822 matches git's %aD placeholder.
const rfc2822 = "Mon, 2 Jan 2006 15:04:05 -0700"

type native struct {
	repo *gitlib.Repository
	path string
}

func OpenNative(_ context.Context, repoPath string) (Backend, error) {
	repo, root, err := openDetected(repoPath)
	if err != nil {
		return nil, err
	}
	return NewNative(repo, root), nil
}

// WorktreeRoot returns the top of the worktree containing path. Paths outside
// a repository, and bare repositories, are returned as absolute paths.
func WorktreeRoot(path string) string {
	_, root, err := openDetected(path)
	if err != nil {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return root
}

// openDetected opens the repository containing path, searching parent
// directories for .git.
func openDetected(path string) (*gitlib.Repository, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", fmt.Errorf("open repository: %w", err)
	}
	root := abs
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	return repo, root, nil
}

// NewNative wraps an already opened repository, which may live on any
// storage (including in memory).
func NewNative(repo *gitlib.Repository, root string) Backend {
	return &native{repo: repo, path: root}
}

func (n *native) RepoPath() string {
	return n.path
}

func (n *native) HeadState(context.Context) (refs.Head, error) {
	ref, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return refs.Head{}, nil
		}
		return refs.Head{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	head := refs.Head{Hash: ref.Hash().String()}
	if ref.Name().IsBranch() {
		head.Branch = ref.Name().Short()
	}
	return head, nil
}

func (n *native) HasMergeHead(context.Context) (bool, error) {
	_, err := n.repo.Reference(plumbing.ReferenceName("MERGE_HEAD"), false)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read MERGE_HEAD: %w", err)
	}
	return true, nil
}

func (n *native) ListRefs(context.Context) ([]refs.Ref, error) {
	iter, err := n.repo.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []refs.Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		parsed, ok := refFromFullName(ref.Name().String(), ref.Hash().String())
		if !ok {
			return nil
		}
		if parsed.Kind == refs.KindTag {
			peeled, ok := n.peelTagCommitHash(ref.Hash())
			if !ok {
				return nil
			}
			parsed.Hash = peeled.String()
		}
		out = append(out, parsed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (n *native) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := n.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := n.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func (n *native) SubmodulePointer(_ context.Context, rev, subPath string) (string, bool, error) {
	hash, err := n.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := n.repo.CommitObject(*hash)
	if err != nil {
		return "", false, fmt.Errorf("read commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", false, fmt.Errorf("read tree of %s: %w", hash, err)
	}
	entry, err := tree.FindEntry(filepath.ToSlash(subPath))
	if err != nil {
		if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if entry.Mode != filemode.Submodule {
		return "", false, nil
	}
	return entry.Hash.String(), true, nil
}

func (n *native) Submodules(context.Context) ([]Submodule, error) {
	wt, err := n.repo.Worktree()
	if err != nil {
		if errors.Is(err, gitlib.ErrIsBareRepository) {
			return nil, nil
		}
		return nil, err
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, fmt.Errorf("read .gitmodules: %w", err)
	}
	out := make([]Submodule, 0, len(subs))
	for _, sub := range subs {
		cfg := sub.Config()
		if cfg == nil || cfg.Path == "" {
			continue
		}
		out = append(out, Submodule{Name: cfg.Name, Path: cfg.Path})
	}
	return out, nil
}

// Log understands the selectors a history view needs: --all, --branches,
// --tags, --remotes and plain revisions. Ordering flags are accepted and
// ignored since the result is always topologically sorted.
func (n *native) Log(ctx context.Context, args []string) (LogStream, error) {
	starts, err := n.logStarts(ctx, args)
	if err != nil {
		return nil, err
	}
	commits, err := n.collect(ctx, starts)
	if err != nil {
		return nil, err
	}
	records := make([]commitstore.Record, 0, len(commits))
	for _, c := range topoSort(commits) {
		records = append(records, recordFromCommit(c, commits))
	}
	return &sliceStream{records: records}, nil
}

func (n *native) logStarts(ctx context.Context, args []string) ([]plumbing.Hash, error) {
	var (
		starts    []plumbing.Hash
		revisions int
		kinds     []refs.Kind
		all       bool
	)
	for _, arg := range args {
		switch arg {
		case "--all":
			all = true
		case "--branches":
			kinds = append(kinds, refs.KindBranch)
		case "--remotes":
			kinds = append(kinds, refs.KindRemoteBranch)
		case "--tags":
			kinds = append(kinds, refs.KindTag)
		case "--topo-order", "--date-order", "--author-date-order":
		default:
			if err := CheckLogArg(arg); err != nil {
				return nil, err
			}
			hash, err := n.repo.ResolveRevision(plumbing.Revision(arg))
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", arg, err)
			}
			starts = append(starts, *hash)
			revisions++
		}
	}
	if all || len(kinds) > 0 {
		list, err := n.ListRefs(ctx)
		if err != nil {
			return nil, err
		}
		for _, ref := range list {
			if all || containsKind(kinds, ref.Kind) {
				starts = append(starts, plumbing.NewHash(ref.Hash))
			}
		}
	}
	if all || (revisions == 0 && len(kinds) == 0) {
		head, err := n.repo.Head()
		switch {
		case err == nil:
			starts = append(starts, head.Hash())
		case !errors.Is(err, plumbing.ErrReferenceNotFound):
			return nil, fmt.Errorf("resolve HEAD: %w", err)
		}
	}
	return starts, nil
}

// collect loads every commit reachable from starts. Parents missing from the
// object store (shallow clones) are left out.
func (n *native) collect(ctx context.Context, starts []plumbing.Hash) (map[plumbing.Hash]*object.Commit, error) {
	commits := map[plumbing.Hash]*object.Commit{}
	stack := append([]plumbing.Hash(nil), starts...)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := commits[h]; ok {
			continue
		}
		c, err := n.repo.CommitObject(h)
		if err != nil {
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				continue
			}
			return nil, fmt.Errorf("read commit %s: %w", h, err)
		}
		commits[h] = c
		stack = append(stack, c.ParentHashes...)
	}
	return commits, nil
}

func recordFromCommit(c *object.Commit, loaded map[plumbing.Hash]*object.Commit) commitstore.Record {
	id := c.Hash.String()
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		if _, ok := loaded[p]; ok {
			parents = append(parents, p.String())
		}
	}
	return commitstore.Record{
		ID:           id,
		ShortID:      abbrev(id),
		ParentIDs:    parents,
		TreeID:       c.TreeHash.String(),
		AuthorName:   c.Author.Name,
		AuthorEmail:  c.Author.Email,
		AuthorDate:   c.Author.When.Format(rfc2822),
		ShortMessage: subject(c.Message),
		FullMessage:  strings.TrimRight(c.Message, "\n"),
	}
}

// subject is the first paragraph folded into one line, like git's %s.
func subject(message string) string {
	para, _, _ := strings.Cut(strings.TrimLeft(message, "\n"), "\n\n")
	return strings.Join(strings.Fields(strings.ReplaceAll(para, "\n", " ")), " ")
}

func containsKind(kinds []refs.Kind, k refs.Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// topoSort orders commits newest first with every child before its parents,
// breaking ties by committer time and then by hash.
func topoSort(commits map[plumbing.Hash]*object.Commit) []*object.Commit {
	pendingChildren := make(map[plumbing.Hash]int, len(commits))
	for _, c := range commits {
		for _, p := range c.ParentHashes {
			if _, ok := commits[p]; ok {
				pendingChildren[p]++
			}
		}
	}
	ready := &commitHeap{}
	for h, c := range commits {
		if pendingChildren[h] == 0 {
			heap.Push(ready, c)
		}
	}
	out := make([]*object.Commit, 0, len(commits))
	for ready.Len() > 0 {
		c := heap.Pop(ready).(*object.Commit)
		out = append(out, c)
		for _, p := range c.ParentHashes {
			parent, ok := commits[p]
			if !ok {
				continue
			}
			pendingChildren[p]--
			if pendingChildren[p] == 0 {
				heap.Push(ready, parent)
			}
		}
	}
	return out
}

type commitHeap []*object.Commit

func (h commitHeap) Len() int { return len(h) }
func (h commitHeap) Less(i, j int) bool {
	ti, tj := h[i].Committer.When, h[j].Committer.When
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return h[i].Hash.String() < h[j].Hash.String()
}
func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *commitHeap) Push(x any)   { *h = append(*h, x.(*object.Commit)) }
func (h *commitHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

type sliceStream struct {
	records []commitstore.Record
	pos     int
}

func (s *sliceStream) Next() (*commitstore.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := &s.records[s.pos]
	s.pos++
	return rec, nil
}

func (s *sliceStream) Close() error {
	return nil
}
