package graph

import (
	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

type Options struct {
	// PaletteSize bounds the color indices; zero means len(DefaultPalette).
	PaletteSize int
	// Decorations are attached as labels to the nodes of their commits.
	// Decorations for commits outside the layout are dropped.
	Decorations []refs.Decoration
}

// Layout is the result of Build. It is read-only once built.
type Layout struct {
	rows      []Row
	nodes     []*Node
	edges     []*Edge
	byID      map[string]*Node
	maxColumn int
}

func (l *Layout) Len() int {
	return len(l.rows)
}

func (l *Layout) Row(y int) Row {
	return l.rows[y]
}

func (l *Layout) Nodes() []*Node {
	return l.nodes
}

// Edges returns every edge in creation order.
func (l *Layout) Edges() []*Edge {
	return l.edges
}

func (l *Layout) Node(id string) (*Node, bool) {
	n, ok := l.byID[id]
	return n, ok
}

// Width is the number of columns used by nodes and edges.
func (l *Layout) Width() int {
	if len(l.rows) == 0 {
		return 0
	}
	return l.maxColumn + 1
}

// Build lays out commits, which must be ordered newest-first so that every
// child precedes its parents. Row 0 is the first commit. Children known to h
// but missing from commits are ignored.
func Build(h History, commits []*commitstore.Commit, opts Options) *Layout {
	paletteSize := opts.PaletteSize
	if paletteSize <= 0 {
		paletteSize = len(DefaultPalette)
	}
	b := &builder{
		h: h,
		layout: &Layout{
			rows:  make([]Row, 0, len(commits)),
			nodes: make([]*Node, 0, len(commits)),
			byID:  make(map[string]*Node, len(commits)),
		},
		byCommit:    make(map[*commitstore.Commit]*Node, len(commits)),
		listed:      make(map[*commitstore.Commit]bool, len(commits)),
		paletteSize: paletteSize,
	}
	for _, c := range commits {
		b.listed[c] = true
	}
	for y, c := range commits {
		b.place(y, c)
	}
	b.decorate(opts.Decorations)
	return b.layout
}

type builder struct {
	h           History
	layout      *Layout
	byCommit    map[*commitstore.Commit]*Node
	listed      map[*commitstore.Commit]bool
	lanes       []*Node
	nextColor   int
	paletteSize int
}

func (b *builder) place(y int, c *commitstore.Commit) {
	children := b.h.Children(c)
	node := &Node{
		Commit:  c,
		Row:     y,
		parents: b.h.Parents(c),
	}
	node.Kind = kindFor(len(node.parents), len(children))
	b.byCommit[c] = node
	b.layout.byID[c.ID] = node
	b.layout.nodes = append(b.layout.nodes, node)
	b.layout.rows = append(b.layout.rows, Row{Node: node})

	b.selectLane(node)
	b.growWidth(node.Column)

	for _, child := range children {
		childNode, ok := b.byCommit[child]
		if !ok {
			continue
		}
		b.link(node, childNode)
	}

	for i, occupant := range b.lanes {
		if occupant != nil && len(occupant.Incoming) == len(occupant.parents) {
			b.lanes[i] = nil
		}
	}
	b.lanes[node.Column] = node
}

// selectLane continues the lane of a child waiting for this commit, or opens
// a new lane in the first free slot with the next color.
func (b *builder) selectLane(node *Node) {
	for i, occupant := range b.lanes {
		if occupant != nil && hasParent(occupant, node.Commit) {
			node.Column = i
			node.Color = occupant.Color
			return
		}
	}
	node.Color = b.nextColor % b.paletteSize
	b.nextColor++
	for i, occupant := range b.lanes {
		if occupant == nil {
			node.Column = i
			return
		}
	}
	node.Column = len(b.lanes)
	b.lanes = append(b.lanes, nil)
}

func (b *builder) link(node, child *Node) {
	edge := &Edge{From: node, To: child}
	node.Outgoing = append(node.Outgoing, edge)
	child.Incoming = append(child.Incoming, edge)
	b.layout.edges = append(b.layout.edges, edge)

	switch {
	case child.Column == node.Column && b.lanes[node.Column] == child:
		edge.Style = EdgeDirect
		edge.Column = node.Column
		edge.Color = child.Color
	case len(child.parents) == 1:
		edge.Style = EdgeBranch
		edge.Column = child.Column
		edge.Color = child.Color
	default:
		edge.Style = EdgeMerge
		edge.Color = node.Color
		edge.Column = b.mergeColumn(node, child)
	}

	first, last := edge.Span()
	for y := first; y <= last; y++ {
		row := &b.layout.rows[y]
		if len(row.Edges) <= edge.Column {
			row.Edges = append(row.Edges, make([]*Edge, edge.Column+1-len(row.Edges))...)
		}
		row.Edges[edge.Column] = edge
	}
	b.growWidth(edge.Column)
}

// mergeColumn finds the first column right of the child, and not left of the
// parent, that is free across the edge's span: no node on an intermediate
// row, no edge already registered, and no open lane whose edge will later be
// drawn through these rows. A lane waiting only for parents outside the list
// never gets that edge and does not block.
func (b *builder) mergeColumn(node, child *Node) int {
	column := max(node.Column, child.Column+1)
	for b.mergeCollides(node, child, column) {
		column++
	}
	return column
}

func (b *builder) mergeCollides(node, child *Node, column int) bool {
	if column < len(b.lanes) && b.awaitsListedParent(b.lanes[column]) {
		return true
	}
	for y := node.Row; y > child.Row; y-- {
		row := b.layout.rows[y]
		if y < node.Row && row.Node.Column == column {
			return true
		}
		if row.EdgeAt(column) != nil {
			return true
		}
	}
	return false
}

// awaitsListedParent reports whether n still has a parent further down the
// list, which will draw an edge into n's lane.
func (b *builder) awaitsListedParent(n *Node) bool {
	if n == nil {
		return false
	}
	for _, p := range n.parents {
		if _, placed := b.byCommit[p]; !placed && b.listed[p] {
			return true
		}
	}
	return false
}

func (b *builder) decorate(decorations []refs.Decoration) {
	for _, d := range decorations {
		node, ok := b.layout.byID[d.Hash]
		if !ok {
			continue
		}
		node.Labels = append(node.Labels, Label{Name: d.Name, Kind: d.Kind})
	}
}

func (b *builder) growWidth(column int) {
	b.layout.maxColumn = max(b.layout.maxColumn, column)
}

func hasParent(n *Node, c *commitstore.Commit) bool {
	for _, p := range n.parents {
		if p == c {
			return true
		}
	}
	return false
}
