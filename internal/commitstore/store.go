// Package commitstore keeps the commits of a loaded history in an append-only
// arena with resolved parent and child links.
package commitstore

import (
	"fmt"
	"strings"
	"sync"
)

// Record is one raw commit as produced by the log executor.
type Record struct {
	ID           string
	ShortID      string
	ParentIDs    []string
	TreeID       string
	AuthorName   string
	AuthorEmail  string
	AuthorDate   string
	ShortMessage string
	FullMessage  string
}

// Commit is an ingested record. Everything but the child list is fixed at
// ingestion; children are back-filled as newer commits arrive and must be read
// through the Store.
type Commit struct {
	ID           string
	ShortID      string
	ParentIDs    []string
	TreeID       string
	AuthorName   string
	AuthorEmail  string
	AuthorDate   string
	ShortMessage string
	FullMessage  string

	index    int
	parents  []int
	children []int
}

// Index is the stable arena position of the commit.
func (c *Commit) Index() int {
	return c.index
}

// NumParents is the number of parents named by the record.
func (c *Commit) NumParents() int {
	return len(c.parents)
}

// Store is the commit pool of a session. It supports one writer and many
// readers; commits are never removed.
type Store struct {
	mu      sync.RWMutex
	commits []*Commit
	byID    map[string]int
}

func New() *Store {
	return &Store{byID: make(map[string]int)}
}

// Ingest registers records, which must be ordered oldest-first: every parent
// must already be in the pool or appear earlier in records. On error the pool
// is left untouched. Records whose id is already present are not re-registered;
// the existing commit is returned in their position.
func (s *Store) Ingest(records []Record) ([]*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("ingest: record without commit id")
		}
		if _, ok := s.byID[rec.ID]; ok {
			continue
		}
		for _, parentID := range rec.ParentIDs {
			if _, ok := s.byID[parentID]; ok {
				continue
			}
			if _, ok := pending[parentID]; ok {
				continue
			}
			return nil, &DanglingParentError{CommitID: rec.ID, ParentID: parentID}
		}
		pending[rec.ID] = struct{}{}
	}

	out := make([]*Commit, 0, len(records))
	for _, rec := range records {
		if idx, ok := s.byID[rec.ID]; ok {
			out = append(out, s.commits[idx])
			continue
		}
		c := &Commit{
			ID:           rec.ID,
			ShortID:      rec.ShortID,
			ParentIDs:    append([]string(nil), rec.ParentIDs...),
			TreeID:       rec.TreeID,
			AuthorName:   rec.AuthorName,
			AuthorEmail:  rec.AuthorEmail,
			AuthorDate:   rec.AuthorDate,
			ShortMessage: rec.ShortMessage,
			FullMessage:  rec.FullMessage,
			index:        len(s.commits),
		}
		if c.ShortID == "" {
			c.ShortID = abbrev(c.ID)
		}
		c.parents = make([]int, 0, len(rec.ParentIDs))
		for _, parentID := range rec.ParentIDs {
			pidx := s.byID[parentID]
			c.parents = append(c.parents, pidx)
			s.commits[pidx].children = append(s.commits[pidx].children, c.index)
		}
		s.commits = append(s.commits, c)
		s.byID[c.ID] = c.index
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) Get(id string) (*Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return s.commits[idx], nil
}

// MinPrefixLen is the shortest abbreviated id Lookup accepts, as in git.
const MinPrefixLen = 4

// Lookup resolves a full id or an abbreviated one. Abbreviations shorter than
// MinPrefixLen only match exactly.
func (s *Store) Lookup(prefix string) (*Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.byID[prefix]; ok {
		return s.commits[idx], nil
	}
	prefix = strings.ToLower(prefix)
	if len(prefix) < MinPrefixLen {
		return nil, &NotFoundError{ID: prefix}
	}
	var matches []*Commit
	for _, c := range s.commits {
		if strings.HasPrefix(c.ID, prefix) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &NotFoundError{ID: prefix}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, c := range matches {
			ids[i] = c.ID
		}
		return nil, &AmbiguousPrefixError{Prefix: prefix, Matches: ids}
	}
}

func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.commits)
}

// Ordered returns the commits for ids in the given order.
func (s *Store) Ordered(ids []string) ([]*Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Commit, 0, len(ids))
	for _, id := range ids {
		idx, ok := s.byID[id]
		if !ok {
			return nil, &NotFoundError{ID: id}
		}
		out = append(out, s.commits[idx])
	}
	return out, nil
}

// Parents returns c's parents in record order.
func (s *Store) Parents(c *Commit) []*Commit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(c.parents)
}

// Children returns the commits naming c as a parent, in ingestion order.
func (s *Store) Children(c *Commit) []*Commit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(c.children)
}

func (s *Store) NumChildren(c *Commit) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(c.children)
}

func (s *Store) resolve(indices []int) []*Commit {
	out := make([]*Commit, len(indices))
	for i, idx := range indices {
		out[i] = s.commits[idx]
	}
	return out
}

func abbrev(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
