// Package reach answers "which commits become unreachable if this reference
// moves?" over a commit store and a reference index.
package reach

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

// Strategy selects how lost commits are computed.
type Strategy uint8

const (
	// HeuristicStrategy walks back from the moving commit and stops at
	// anything that is referenced, is the destination, or has more than one
	// child. It only looks at the commit's immediate neighbourhood.
	HeuristicStrategy Strategy = iota
	// StrictStrategy marks everything reachable from the references as they
	// will be after the move and reports what is left unmarked.
	StrictStrategy
)

func (s Strategy) String() string {
	switch s {
	case HeuristicStrategy:
		return "heuristic"
	case StrictStrategy:
		return "strict"
	default:
		return fmt.Sprintf("Strategy(%d)", s)
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "heuristic":
		return HeuristicStrategy, nil
	case "strict":
		return StrictStrategy, nil
	default:
		return 0, fmt.Errorf("unknown reachability strategy %q", s)
	}
}

// Analyzer runs lost-commit queries. It is safe for concurrent use as long as
// the store is.
type Analyzer struct {
	store    *commitstore.Store
	refs     *refs.Index
	strategy Strategy
}

func NewAnalyzer(store *commitstore.Store, index *refs.Index, strategy Strategy) *Analyzer {
	return &Analyzer{store: store, refs: index, strategy: strategy}
}

func (a *Analyzer) Strategy() Strategy {
	return a.strategy
}

// Query names a reference and where it is moving to. An empty MovingTo means
// the reference is deleted.
type Query struct {
	Ref      string
	MovingTo string
}

// LostCommits returns the commits that become unreachable when refName is
// moved to movingTo, newest first. refName is HEAD, a full refs/... name or a
// short name.
func (a *Analyzer) LostCommits(refName, movingTo string) ([]*commitstore.Commit, error) {
	fullName, id, err := a.refs.Lookup(refName)
	if err != nil {
		return nil, err
	}
	current, err := a.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("lost commits of %s: %w", refName, err)
	}
	if current.ID == movingTo {
		return nil, nil
	}
	switch a.strategy {
	case StrictStrategy:
		return a.strict(fullName, current, movingTo), nil
	default:
		return a.heuristic(fullName, current, movingTo), nil
	}
}

// ResolveTarget turns a move destination into a commit id. It accepts HEAD,
// reference names, full ids and unique abbreviated ids of loaded commits.
// Anything else is returned unchanged, since a destination outside the pool
// keeps nothing alive. An abbreviation matching several commits is an error.
func (a *Analyzer) ResolveTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", nil
	}
	if id, err := a.refs.Resolve(target); err == nil {
		return id, nil
	}
	c, err := a.store.Lookup(target)
	switch {
	case err == nil:
		return c.ID, nil
	case errors.Is(err, commitstore.ErrAmbiguous):
		return "", fmt.Errorf("resolve %s: %w", target, err)
	default:
		return target, nil
	}
}

// LostCommitsUnion merges the results of several queries, dropping
// duplicates and keeping the order in which commits are first seen.
func (a *Analyzer) LostCommitsUnion(queries ...Query) ([]*commitstore.Commit, error) {
	var out []*commitstore.Commit
	seen := map[string]bool{}
	for _, q := range queries {
		lost, err := a.LostCommits(q.Ref, q.MovingTo)
		if err != nil {
			return nil, err
		}
		for _, c := range lost {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// IDs returns the ids of commits in order.
func IDs(commits []*commitstore.Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.ID
	}
	return out
}

func sortNewestFirst(commits []*commitstore.Commit) {
	slices.SortFunc(commits, func(a, b *commitstore.Commit) int {
		return b.Index() - a.Index()
	})
}
