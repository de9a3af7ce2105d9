// Package git is the repository session: it drives a backend to load
// references and history into a shared commit store, lays the history out and
// answers lost-commit queries. Nested submodules get their own session over
// the same store.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/git/backend"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/reach"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

// MainModuleName names the top-level repository of a session tree.
const MainModuleName = "Main module"

// DefaultLogArgs selects every reference in topological order.
var DefaultLogArgs = []string{"--topo-order", "--all"}

type Options struct {
	Backend     backend.Kind
	LogArgs     []string
	Filter      *refs.Filter
	Strategy    reach.Strategy
	PaletteSize int

	// Store is shared with the caller; nil creates a new one.
	Store *commitstore.Store
	// Opener overrides how backends are opened; nil means backend.Open.
	Opener func(ctx context.Context, kind backend.Kind, path string) (backend.Backend, error)
}

type Repository struct {
	name    string
	parent  *Repository
	backend backend.Backend
	store   *commitstore.Store
	opts    Options

	submodules []*Repository

	mu      sync.RWMutex
	index   *refs.Index
	commits []*commitstore.Commit
	layout  *graph.Layout
}

// Open opens the repository containing path, discovers its submodules and
// loads everything once.
func Open(ctx context.Context, path string, opts Options) (*Repository, error) {
	if opts.Store == nil {
		opts.Store = commitstore.New()
	}
	if opts.Opener == nil {
		opts.Opener = backend.Open
	}
	if opts.LogArgs == nil {
		opts.LogArgs = DefaultLogArgs
	}
	be, err := opts.Opener(ctx, opts.Backend, path)
	if err != nil {
		return nil, err
	}
	r := newRepository(MainModuleName, nil, be, opts)
	if err := r.openSubmodules(ctx); err != nil {
		return nil, err
	}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func newRepository(name string, parent *Repository, be backend.Backend, opts Options) *Repository {
	return &Repository{
		name:    name,
		parent:  parent,
		backend: be,
		store:   opts.Store,
		opts:    opts,
		index:   refs.NewIndex(refs.Snapshot{}),
		layout:  graph.Build(opts.Store, nil, graph.Options{}),
	}
}

func (r *Repository) openSubmodules(ctx context.Context) error {
	subs, err := r.backend.Submodules(ctx)
	if err != nil {
		return fmt.Errorf("list submodules of %s: %w", r.name, err)
	}
	root := r.backend.RepoPath()
	for _, sub := range subs {
		path := filepath.Join(root, filepath.FromSlash(sub.Path))
		be, err := r.opts.Opener(ctx, r.opts.Backend, path)
		if err != nil {
			slog.Debug("skipping submodule",
				slog.String("path", sub.Path),
				slog.Any("error", err),
			)
			continue
		}
		// An uninitialized submodule directory resolves to the parent.
		if filepath.Clean(be.RepoPath()) != filepath.Clean(path) {
			slog.Debug("skipping uninitialized submodule", slog.String("path", sub.Path))
			continue
		}
		child := newRepository(sub.Path, r, be, r.opts)
		if err := child.openSubmodules(ctx); err != nil {
			return err
		}
		r.submodules = append(r.submodules, child)
	}
	return nil
}

func (r *Repository) Name() string {
	return r.name
}

func (r *Repository) Path() string {
	return r.backend.RepoPath()
}

func (r *Repository) Store() *commitstore.Store {
	return r.store
}

// Submodules returns the direct submodule sessions.
func (r *Repository) Submodules() []*Repository {
	return r.submodules
}

// Modules returns r followed by every nested submodule, depth first.
func (r *Repository) Modules() []*Repository {
	out := []*Repository{r}
	for _, sub := range r.submodules {
		out = append(out, sub.Modules()...)
	}
	return out
}

// Reload rebuilds the reference index, reads the log, ingests new commits and
// lays the history out again. Submodules are reloaded after their parent.
func (r *Repository) Reload(ctx context.Context) error {
	start := time.Now()
	slog.Debug("reload start", slog.String("repo", r.name))

	snap, err := r.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	index := refs.NewIndex(snap)

	commits, err := r.loadHistory(ctx, index)
	if err != nil {
		return err
	}
	layout := graph.Build(r.store, commits, graph.Options{
		PaletteSize: r.opts.PaletteSize,
		Decorations: index.Decorations(r.opts.Filter),
	})

	r.mu.Lock()
	r.index = index
	r.commits = commits
	r.layout = layout
	r.mu.Unlock()

	slog.Debug("reload done",
		slog.String("repo", r.name),
		slog.Int("commits", len(commits)),
		slog.Int("pool", r.store.Len()),
		slog.Int("width", layout.Width()),
		slog.Duration("took", time.Since(start)),
	)

	for _, sub := range r.submodules {
		if err := sub.Reload(ctx); err != nil {
			return fmt.Errorf("reload submodule %s: %w", sub.name, err)
		}
	}
	return nil
}

func (r *Repository) loadSnapshot(ctx context.Context) (refs.Snapshot, error) {
	var snap refs.Snapshot
	head, err := r.backend.HeadState(ctx)
	if err != nil {
		return snap, fmt.Errorf("read HEAD of %s: %w", r.name, err)
	}
	list, err := r.backend.ListRefs(ctx)
	if err != nil {
		return snap, fmt.Errorf("list references of %s: %w", r.name, err)
	}
	snap.Head = head
	snap.Refs = list
	if r.parent != nil {
		snap.ModuleHead = r.parent.submodulePointer(ctx, "HEAD", r.name)
		merging, err := r.parent.backend.HasMergeHead(ctx)
		if err != nil {
			return snap, fmt.Errorf("read MERGE_HEAD of %s: %w", r.parent.name, err)
		}
		if merging {
			snap.ModuleMergeHead = r.parent.submodulePointer(ctx, "MERGE_HEAD", r.name)
		}
	}
	return snap, nil
}

// submodulePointer is best effort: an unborn parent has no tree to read.
func (r *Repository) submodulePointer(ctx context.Context, rev, path string) string {
	hash, ok, err := r.backend.SubmodulePointer(ctx, rev, path)
	if err != nil {
		slog.Debug("submodule pointer",
			slog.String("rev", rev),
			slog.String("path", path),
			slog.Any("error", err),
		)
		return ""
	}
	if !ok {
		return ""
	}
	return hash
}

// loadHistory returns the selected commits newest first after ingesting them
// oldest first.
func (r *Repository) loadHistory(ctx context.Context, index *refs.Index) ([]*commitstore.Commit, error) {
	if len(index.Targets()) == 0 {
		// Nothing to log in an empty repository.
		return nil, nil
	}
	stream, err := r.backend.Log(ctx, r.opts.LogArgs)
	if err != nil {
		return nil, fmt.Errorf("read log of %s: %w", r.name, err)
	}
	records, err := backend.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read log of %s: %w", r.name, err)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	commits, err := r.store.Ingest(records)
	if err != nil {
		return nil, fmt.Errorf("ingest log of %s: %w", r.name, err)
	}
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

func (r *Repository) Refs() *refs.Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}

// Commits returns the commits of the last reload, newest first.
func (r *Repository) Commits() []*commitstore.Commit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commits
}

func (r *Repository) Layout() *graph.Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layout
}

// LayoutLimit lays out only the newest limit commits. A non-positive limit
// returns the full layout.
func (r *Repository) LayoutLimit(limit int) *graph.Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit >= len(r.commits) {
		return r.layout
	}
	return graph.Build(r.store, r.commits[:limit], graph.Options{
		PaletteSize: r.opts.PaletteSize,
		Decorations: r.index.Decorations(r.opts.Filter),
	})
}

// Analyzer answers lost-commit queries against the last loaded references,
// using strategy.
func (r *Repository) Analyzer(strategy reach.Strategy) *reach.Analyzer {
	return reach.NewAnalyzer(r.store, r.Refs(), strategy)
}

func (r *Repository) LostCommits(refName, movingTo string) ([]*commitstore.Commit, error) {
	return r.Analyzer(r.opts.Strategy).LostCommits(refName, movingTo)
}

func (r *Repository) LostCommitsUnion(queries ...reach.Query) ([]*commitstore.Commit, error) {
	return r.Analyzer(r.opts.Strategy).LostCommitsUnion(queries...)
}
