// Package refs holds the reference index of a loaded repository: every branch,
// remote branch and tag mapped to its commit, the inverse mapping, and the
// head state. An Index is immutable; reloading references builds a new one.
package refs

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// HEAD is the pseudo-reference naming the current head.
const HEAD = "HEAD"

const (
	branchPrefix = "refs/heads/"
	remotePrefix = "refs/remotes/"
	tagPrefix    = "refs/tags/"
)

type Kind uint8

const (
	KindBranch Kind = iota
	KindRemoteBranch
	KindTag
)

type Ref struct {
	Hash string
	Kind Kind
	Name string // short name: main, origin/main, v1
}

// FullName returns the refs/... form of the reference.
func (r Ref) FullName() string {
	switch r.Kind {
	case KindRemoteBranch:
		return remotePrefix + r.Name
	case KindTag:
		return tagPrefix + r.Name
	default:
		return branchPrefix + r.Name
	}
}

// Head describes what HEAD points at. Branch is empty when HEAD is detached.
type Head struct {
	Hash   string
	Branch string
}

func (h Head) Detached() bool {
	return h.Branch == ""
}

// Snapshot is everything the executor reports about references at one point in time.
type Snapshot struct {
	Refs []Ref
	Head Head

	// ModuleHead and ModuleMergeHead are the commits a parent project records
	// for this repository when it is a submodule; empty otherwise.
	ModuleHead      string
	ModuleMergeHead string
}

var ErrUnknownReference = errors.New("unknown reference")

type UnknownReferenceError struct {
	Name string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q", e.Name)
}

func (e *UnknownReferenceError) Is(target error) bool {
	return target == ErrUnknownReference
}

type Index struct {
	snap     Snapshot
	branches map[string]string
	remotes  map[string]string
	tags     map[string]string
	byHash   map[string][]string
}

func NewIndex(snap Snapshot) *Index {
	ix := &Index{
		snap:     snap,
		branches: map[string]string{},
		remotes:  map[string]string{},
		tags:     map[string]string{},
		byHash:   map[string][]string{},
	}
	ix.snap.Refs = slices.Clone(snap.Refs)
	for _, ref := range snap.Refs {
		if ref.Hash == "" || ref.Name == "" {
			continue
		}
		switch ref.Kind {
		case KindBranch:
			ix.branches[ref.Name] = ref.Hash
		case KindRemoteBranch:
			ix.remotes[ref.Name] = ref.Hash
		case KindTag:
			ix.tags[ref.Name] = ref.Hash
		default:
			continue
		}
		ix.byHash[ref.Hash] = append(ix.byHash[ref.Hash], ref.FullName())
	}
	for hash := range ix.byHash {
		slices.Sort(ix.byHash[hash])
		ix.byHash[hash] = slices.Compact(ix.byHash[hash])
	}
	return ix
}

func (ix *Index) Head() Head {
	return ix.snap.Head
}

func (ix *Index) Snapshot() Snapshot {
	snap := ix.snap
	snap.Refs = slices.Clone(ix.snap.Refs)
	return snap
}

// Resolve maps a reference name to its commit id. It accepts HEAD, full
// refs/... names and short names, trying branches, remote branches and tags
// in that order.
func (ix *Index) Resolve(name string) (string, error) {
	_, hash, err := ix.Lookup(name)
	return hash, err
}

// Lookup is Resolve that also returns the full name the reference resolved
// to, or HEAD.
func (ix *Index) Lookup(name string) (fullName, hash string, err error) {
	name = strings.TrimSpace(name)
	if name == HEAD {
		if ix.snap.Head.Hash == "" {
			return "", "", &UnknownReferenceError{Name: name}
		}
		return HEAD, ix.snap.Head.Hash, nil
	}
	candidates := []struct {
		prefix string
		m      map[string]string
	}{
		{branchPrefix, ix.branches},
		{remotePrefix, ix.remotes},
		{tagPrefix, ix.tags},
	}
	for _, c := range candidates {
		if short, ok := strings.CutPrefix(name, c.prefix); ok {
			if hash, ok := c.m[short]; ok {
				return name, hash, nil
			}
			return "", "", &UnknownReferenceError{Name: name}
		}
	}
	for _, c := range candidates {
		if hash, ok := c.m[name]; ok {
			return c.prefix + name, hash, nil
		}
	}
	return "", "", &UnknownReferenceError{Name: name}
}

// NamesAt returns the full names of every reference pointing at hash, sorted.
// HEAD is not included.
func (ix *Index) NamesAt(hash string) []string {
	return slices.Clone(ix.byHash[hash])
}

// HasNames reports whether any reference points at hash.
func (ix *Index) HasNames(hash string) bool {
	return len(ix.byHash[hash]) > 0
}

// Targets returns the distinct commit ids that references (and HEAD) point at,
// sorted.
func (ix *Index) Targets() []string {
	out := make([]string, 0, len(ix.byHash)+1)
	for hash := range ix.byHash {
		out = append(out, hash)
	}
	if ix.snap.Head.Hash != "" {
		out = append(out, ix.snap.Head.Hash)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
