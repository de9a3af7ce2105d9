package refs

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type LabelKind uint8

const (
	LabelHeadBranch LabelKind = iota
	LabelDetachedHead
	LabelModule
	LabelBranch
	LabelRemote
	LabelTag
)

func (k LabelKind) String() string {
	switch k {
	case LabelHeadBranch:
		return "head"
	case LabelDetachedHead:
		return "detached"
	case LabelModule:
		return "module"
	case LabelBranch:
		return "branch"
	case LabelRemote:
		return "remote"
	case LabelTag:
		return "tag"
	default:
		return fmt.Sprintf("LabelKind(%d)", uint8(k))
	}
}

const (
	DetachedHeadLabel    = "DETACHED HEAD"
	ModuleHeadLabel      = "MAIN/HEAD"
	ModuleMergeHeadLabel = "MAIN/MERGE_HEAD"
)

// Decoration is a label to attach to the node of commit Hash.
type Decoration struct {
	Hash string
	Name string
	Kind LabelKind
}

// Filter selects reference names by doublestar glob. An empty Include
// matches everything; Exclude wins over Include.
type Filter struct {
	Include []string
	Exclude []string
}

func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	for _, p := range slices.Concat(f.Include, f.Exclude) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid reference pattern %q", p)
		}
	}
	return nil
}

func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	for _, p := range f.Exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Decorations lists the labels for the history view: HEAD first (the current
// branch, or a detached marker), then the parent-project pointers, then every
// other branch, remote branch and tag. Names are sorted within each kind.
// Remote HEAD aliases are skipped. The filter applies to branch, remote and
// tag names only.
func (ix *Index) Decorations(f *Filter) []Decoration {
	var out []Decoration
	head := ix.snap.Head
	if head.Hash != "" {
		if head.Detached() {
			out = append(out, Decoration{Hash: head.Hash, Name: DetachedHeadLabel, Kind: LabelDetachedHead})
		} else {
			out = append(out, Decoration{Hash: head.Hash, Name: head.Branch, Kind: LabelHeadBranch})
		}
	}
	if ix.snap.ModuleHead != "" {
		out = append(out, Decoration{Hash: ix.snap.ModuleHead, Name: ModuleHeadLabel, Kind: LabelModule})
	}
	if ix.snap.ModuleMergeHead != "" {
		out = append(out, Decoration{Hash: ix.snap.ModuleMergeHead, Name: ModuleMergeHeadLabel, Kind: LabelModule})
	}
	for _, name := range sortedKeys(ix.branches) {
		if name == head.Branch || !f.Match(name) {
			continue
		}
		out = append(out, Decoration{Hash: ix.branches[name], Name: name, Kind: LabelBranch})
	}
	for _, name := range sortedKeys(ix.remotes) {
		if strings.HasSuffix(name, "/HEAD") || !f.Match(name) {
			continue
		}
		out = append(out, Decoration{Hash: ix.remotes[name], Name: name, Kind: LabelRemote})
	}
	for _, name := range sortedKeys(ix.tags) {
		if !f.Match(name) {
			continue
		}
		out = append(out, Decoration{Hash: ix.tags[name], Name: name, Kind: LabelTag})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
