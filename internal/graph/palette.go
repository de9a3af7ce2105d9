package graph

// Palette maps the cyclic color index of nodes and edges to a color.
type Palette []string

// DefaultPalette is the lane palette used when none is configured.
var DefaultPalette = Palette{
	"#000060",
	"#006000",
	"#600000",
	"#404000",
	"#400040",
	"#004040",
	"#80c000",
	"#c08000",
	"#400080",
	"#00a060",
	"#0060a0",
}

func (p Palette) Color(index int) string {
	if len(p) == 0 {
		return ""
	}
	index %= len(p)
	if index < 0 {
		index += len(p)
	}
	return p[index]
}
