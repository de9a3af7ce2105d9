package reach

import (
	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

func (a *Analyzer) heuristic(fullName string, current *commitstore.Commit, movingTo string) []*commitstore.Commit {
	// Another reference keeps the commit alive. HEAD is not one of the names,
	// so moving HEAD is safe as soon as anything else points there.
	names := len(a.refs.NamesAt(current.ID))
	if (fullName == refs.HEAD && names > 0) || names > 1 {
		return nil
	}
	// Some descendant must be referenced, otherwise it would not be loaded.
	if a.store.NumChildren(current) > 0 {
		return nil
	}

	var lost []*commitstore.Commit
	frontier := []*commitstore.Commit{current}
	for len(frontier) > 0 {
		var next []*commitstore.Commit
		for _, c := range frontier {
			for _, p := range a.store.Parents(c) {
				if a.refs.HasNames(p.ID) || p.ID == movingTo || a.store.NumChildren(p) != 1 {
					continue
				}
				next = append(next, p)
			}
		}
		lost = append(lost, frontier...)
		frontier = next
	}
	return lost
}
