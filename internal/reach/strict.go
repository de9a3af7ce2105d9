package reach

import (
	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

// strict is a mark-and-sweep over the loaded pool. The roots are every
// reference and HEAD as they will be once fullName points at movingTo. HEAD
// follows the branch it is attached to.
func (a *Analyzer) strict(fullName string, current *commitstore.Commit, movingTo string) []*commitstore.Commit {
	marked := map[*commitstore.Commit]bool{}
	mark := func(ids ...string) {
		var stack []*commitstore.Commit
		for _, id := range ids {
			if c, err := a.store.Get(id); err == nil && !marked[c] {
				marked[c] = true
				stack = append(stack, c)
			}
		}
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, p := range a.store.Parents(c) {
				if !marked[p] {
					marked[p] = true
					stack = append(stack, p)
				}
			}
		}
	}

	snap := a.refs.Snapshot()
	headMoves := fullName == refs.HEAD
	for _, ref := range snap.Refs {
		if ref.Hash == "" || ref.Name == "" {
			continue
		}
		if ref.FullName() == fullName {
			if ref.Kind == refs.KindBranch && ref.Name == snap.Head.Branch {
				headMoves = true
			}
			continue
		}
		mark(ref.Hash)
	}
	if headMoves {
		mark(movingTo)
	} else {
		mark(snap.Head.Hash)
	}
	if fullName != refs.HEAD {
		mark(movingTo)
	}

	var lost []*commitstore.Commit
	seen := map[*commitstore.Commit]bool{current: true}
	stack := []*commitstore.Commit{current}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if marked[c] {
			continue
		}
		lost = append(lost, c)
		for _, p := range a.store.Parents(c) {
			if !seen[p] {
				seen[p] = true
				stack = append(stack, p)
			}
		}
	}
	sortNewestFirst(lost)
	return lost
}
