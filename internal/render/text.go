// Package render turns a graph layout into text for terminals and into a JSON
// document for other surfaces.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

const (
	glyphNode   = "*"
	glyphMerge  = "M"
	glyphRoot   = "o"
	glyphLane   = "|"
	glyphJoin   = `\`
	glyphBlank  = " "
	cellPadding = " "
)

type TextOptions struct {
	// Palette colors lanes; empty means graph.DefaultPalette.
	Palette graph.Palette
	// Color enables ANSI colors regardless of the output.
	Color bool
	// Width truncates every line to this many runes; zero disables it.
	Width int
}

// WriteText writes one line per layout row: the lane cells, the short id,
// the labels and the subject.
func WriteText(w io.Writer, layout *graph.Layout, opts TextOptions) error {
	p := newPainter(opts)
	bw := bufio.NewWriter(w)
	for y := range layout.Len() {
		line := p.row(layout, layout.Row(y))
		if _, err := bw.WriteString(line.String(opts.Width) + "\n"); err != nil {
			return fmt.Errorf("write row %d: %w", y, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	return nil
}

type segment struct {
	text  string
	color *color.Color
}

type line []segment

func (l *line) add(text string, c *color.Color) {
	*l = append(*l, segment{text: text, color: c})
}

// String renders the segments, cutting the visible text at limit runes.
func (l line) String(limit int) string {
	var sb strings.Builder
	remaining := limit
	for _, seg := range l {
		text := seg.text
		if limit > 0 {
			if remaining <= 0 {
				break
			}
			if n := utf8.RuneCountInString(text); n > remaining {
				text = string([]rune(text)[:remaining])
			}
			remaining -= utf8.RuneCountInString(text)
		}
		if seg.color != nil {
			sb.WriteString(seg.color.Sprint(text))
		} else {
			sb.WriteString(text)
		}
	}
	return sb.String()
}

type painter struct {
	enabled bool
	palette graph.Palette
	lanes   map[int]*color.Color
	labels  map[refs.LabelKind]*color.Color
	dim     *color.Color
}

func newPainter(opts TextOptions) *painter {
	palette := opts.Palette
	if len(palette) == 0 {
		palette = graph.DefaultPalette
	}
	p := &painter{
		enabled: opts.Color,
		palette: palette,
		lanes:   map[int]*color.Color{},
		labels: map[refs.LabelKind]*color.Color{
			refs.LabelHeadBranch:   color.New(color.FgCyan, color.Bold),
			refs.LabelDetachedHead: color.New(color.FgRed, color.Bold),
			refs.LabelModule:       color.New(color.FgMagenta),
			refs.LabelBranch:       color.New(color.FgGreen),
			refs.LabelRemote:       color.New(color.FgRed),
			refs.LabelTag:          color.New(color.FgYellow),
		},
		dim: color.New(color.Faint),
	}
	for _, c := range p.labels {
		p.force(c)
	}
	p.force(p.dim)
	return p
}

func (p *painter) force(c *color.Color) {
	if p.enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func (p *painter) lane(index int) *color.Color {
	if c, ok := p.lanes[index]; ok {
		return c
	}
	var c *color.Color
	if r, g, b, ok := parseHex(p.palette.Color(index)); ok {
		c = color.RGB(r, g, b)
	} else {
		c = color.New(color.Reset)
	}
	p.force(c)
	p.lanes[index] = c
	return c
}

func (p *painter) row(layout *graph.Layout, row graph.Row) line {
	var l line
	node := row.Node
	for column := range layout.Width() {
		switch edge := row.EdgeAt(column); {
		case column == node.Column:
			l.add(nodeGlyph(node), p.lane(node.Color))
		case edge == nil:
			l.add(glyphBlank, nil)
		case edge.Style == graph.EdgeMerge:
			l.add(glyphJoin, p.lane(edge.Color))
		default:
			l.add(glyphLane, p.lane(edge.Color))
		}
		l.add(cellPadding, nil)
	}
	l.add(node.Commit.ShortID, p.dim)
	for _, label := range node.Labels {
		l.add(" ", nil)
		l.add(FormatLabel(label), p.labels[label.Kind])
	}
	if msg := node.Commit.ShortMessage; msg != "" {
		l.add(" "+msg, nil)
	}
	return l
}

func nodeGlyph(n *graph.Node) string {
	switch {
	case n.Commit.NumParents() > 1:
		return glyphMerge
	case n.Commit.NumParents() == 0:
		return glyphRoot
	default:
		return glyphNode
	}
}

// FormatLabel brackets reference names; HEAD and parent-project pointers use
// parentheses.
func FormatLabel(l graph.Label) string {
	switch l.Kind {
	case refs.LabelHeadBranch, refs.LabelDetachedHead, refs.LabelModule:
		return "(" + l.Name + ")"
	default:
		return "[" + l.Name + "]"
	}
}

func parseHex(s string) (r, g, b int, ok bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}
