package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/graph"
)

// LayoutDocument is the wire form of a layout.
type LayoutDocument struct {
	Width   int       `json:"width"`
	Nodes   []NodeDoc `json:"nodes"`
	Edges   []EdgeDoc `json:"edges"`
	Palette []string  `json:"palette"`
}

type NodeDoc struct {
	CommitDoc
	Row    int        `json:"row"`
	Column int        `json:"column"`
	Color  int        `json:"color"`
	Kind   string     `json:"kind"`
	Labels []LabelDoc `json:"labels,omitempty"`
}

type CommitDoc struct {
	ID      string   `json:"id"`
	ShortID string   `json:"short_id"`
	Parents []string `json:"parents,omitempty"`
	Message string   `json:"message"`
	Author  string   `json:"author"`
	Email   string   `json:"email,omitempty"`
	Date    string   `json:"date"`
}

type LabelDoc struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type EdgeDoc struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Style  string `json:"style"`
	Column int    `json:"column"`
	Color  int    `json:"color"`
}

func NewLayoutDocument(layout *graph.Layout, palette graph.Palette) LayoutDocument {
	if len(palette) == 0 {
		palette = graph.DefaultPalette
	}
	doc := LayoutDocument{
		Width:   layout.Width(),
		Nodes:   make([]NodeDoc, 0, layout.Len()),
		Edges:   make([]EdgeDoc, 0, len(layout.Edges())),
		Palette: append([]string(nil), palette...),
	}
	for _, n := range layout.Nodes() {
		nd := NodeDoc{
			CommitDoc: NewCommitDoc(n.Commit),
			Row:       n.Row,
			Column:    n.Column,
			Color:     n.Color,
			Kind:      n.Kind.String(),
		}
		for _, l := range n.Labels {
			nd.Labels = append(nd.Labels, LabelDoc{Name: l.Name, Kind: l.Kind.String()})
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, e := range layout.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{
			From:   e.From.Commit.ID,
			To:     e.To.Commit.ID,
			Style:  e.Style.String(),
			Column: e.Column,
			Color:  e.Color,
		})
	}
	return doc
}

func NewCommitDoc(c *commitstore.Commit) CommitDoc {
	return CommitDoc{
		ID:      c.ID,
		ShortID: c.ShortID,
		Parents: c.ParentIDs,
		Message: c.ShortMessage,
		Author:  c.AuthorName,
		Email:   c.AuthorEmail,
		Date:    c.AuthorDate,
	}
}

// CommitDocs converts a commit list, keeping its order.
func CommitDocs(commits []*commitstore.Commit) []CommitDoc {
	out := make([]CommitDoc, 0, len(commits))
	for _, c := range commits {
		out = append(out, NewCommitDoc(c))
	}
	return out
}

// WriteJSON encodes v indented, followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
