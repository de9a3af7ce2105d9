// Package graph lays out a newest-first commit list into rows, lanes and
// colors for a branch-topology view.
package graph

import (
	"fmt"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

type NodeKind uint8

const (
	NodeNormal NodeKind = iota
	NodeBranch
	NodeMerge
	NodeJunction
)

func (k NodeKind) String() string {
	switch k {
	case NodeNormal:
		return "normal"
	case NodeBranch:
		return "branch"
	case NodeMerge:
		return "merge"
	case NodeJunction:
		return "junction"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

func kindFor(parents, children int) NodeKind {
	switch {
	case parents > 1 && children > 1:
		return NodeJunction
	case parents > 1:
		return NodeMerge
	case children > 1:
		return NodeBranch
	default:
		return NodeNormal
	}
}

type EdgeStyle uint8

const (
	// EdgeDirect continues a lane straight down.
	EdgeDirect EdgeStyle = iota
	// EdgeBranch leaves the parent's lane diagonally towards a single-parent child.
	EdgeBranch
	// EdgeMerge joins a parent into a merge commit on its own routing column.
	EdgeMerge
)

func (s EdgeStyle) String() string {
	switch s {
	case EdgeDirect:
		return "direct"
	case EdgeBranch:
		return "branch"
	case EdgeMerge:
		return "merge"
	default:
		return fmt.Sprintf("EdgeStyle(%d)", uint8(s))
	}
}

type Label struct {
	Name string
	Kind refs.LabelKind
}

type Node struct {
	Commit *commitstore.Commit
	Row    int
	Column int
	Color  int
	Kind   NodeKind

	// Incoming holds the edges from this commit's parents, Outgoing the edges
	// to its children.
	Incoming []*Edge
	Outgoing []*Edge

	Labels []Label

	parents []*commitstore.Commit
}

// Edge links an older parent node (From) to a newer child node (To).
type Edge struct {
	From   *Node
	To     *Node
	Style  EdgeStyle
	Column int
	Color  int
}

// Span returns the rows the edge occupies: every row after the child's up to
// and including the parent's.
func (e *Edge) Span() (first, last int) {
	return e.To.Row + 1, e.From.Row
}

// Row is one line of the layout: its node and the edges crossing it, indexed
// by column. Cells without an edge are nil.
type Row struct {
	Node  *Node
	Edges []*Edge
}

// EdgeAt returns the edge registered at column in this row, or nil.
func (r Row) EdgeAt(column int) *Edge {
	if column < 0 || column >= len(r.Edges) {
		return nil
	}
	return r.Edges[column]
}

// History is the commit graph the layout reads links from.
type History interface {
	Parents(c *commitstore.Commit) []*commitstore.Commit
	Children(c *commitstore.Commit) []*commitstore.Commit
}
