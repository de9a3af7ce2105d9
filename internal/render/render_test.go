package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

// mergeLayout lays out a topic branch merged back into main:
//
//	A <- B <- M
//	A <- C <- M
func mergeLayout(t *testing.T) *graph.Layout {
	t.Helper()
	store := commitstore.New()
	commits, err := store.Ingest([]commitstore.Record{
		{ID: "A", ShortID: "a1", ShortMessage: "first", AuthorName: "Alice"},
		{ID: "B", ShortID: "b1", ParentIDs: []string{"A"}, ShortMessage: "second"},
		{ID: "C", ShortID: "c1", ParentIDs: []string{"A"}, ShortMessage: "third"},
		{ID: "M", ShortID: "m1", ParentIDs: []string{"B", "C"}, ShortMessage: "Merge topic"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	newestFirst := []*commitstore.Commit{commits[3], commits[2], commits[1], commits[0]}
	index := refs.NewIndex(refs.Snapshot{
		Refs: []refs.Ref{
			{Hash: "M", Kind: refs.KindBranch, Name: "main"},
			{Hash: "B", Kind: refs.KindBranch, Name: "topic"},
			{Hash: "A", Kind: refs.KindTag, Name: "v1"},
		},
		Head: refs.Head{Hash: "M", Branch: "main"},
	})
	return graph.Build(store, newestFirst, graph.Options{Decorations: index.Decorations(nil)})
}

func assertGolden(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Fatalf("unexpected rendering:\n%s", diff)
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteText(&buf, mergeLayout(t), TextOptions{}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	want := strings.Join([]string{
		`M   m1 (main) Merge topic`,
		`* \ c1 third`,
		`| * b1 [topic] second`,
		`o | a1 [v1] first`,
	}, "\n") + "\n"
	assertGolden(t, buf.String(), want)
}

func TestWriteTextTruncates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteText(&buf, mergeLayout(t), TextOptions{Width: 8}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	want := strings.Join([]string{
		`M   m1 (`,
		`* \ c1 t`,
		`| * b1 [`,
		`o | a1 [`,
	}, "\n") + "\n"
	assertGolden(t, buf.String(), want)
}

func TestWriteTextColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteText(&buf, mergeLayout(t), TextOptions{Color: true}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI escapes in %q", out)
	}
	// Lane 0 uses the first palette entry, #000060.
	if !strings.Contains(out, "38;2;0;0;96") {
		t.Fatalf("expected lane color in %q", out)
	}
}

func TestFormatLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label graph.Label
		want  string
	}{
		{graph.Label{Name: "main", Kind: refs.LabelHeadBranch}, "(main)"},
		{graph.Label{Name: refs.DetachedHeadLabel, Kind: refs.LabelDetachedHead}, "(DETACHED HEAD)"},
		{graph.Label{Name: refs.ModuleHeadLabel, Kind: refs.LabelModule}, "(MAIN/HEAD)"},
		{graph.Label{Name: "topic", Kind: refs.LabelBranch}, "[topic]"},
		{graph.Label{Name: "origin/main", Kind: refs.LabelRemote}, "[origin/main]"},
		{graph.Label{Name: "v1", Kind: refs.LabelTag}, "[v1]"},
	}
	for _, tt := range tests {
		if got := FormatLabel(tt.label); got != tt.want {
			t.Fatalf("FormatLabel(%v) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestParseHex(t *testing.T) {
	t.Parallel()

	if r, g, b, ok := parseHex("#80c000"); !ok || r != 0x80 || g != 0xc0 || b != 0 {
		t.Fatalf("parseHex = %d %d %d %v", r, g, b, ok)
	}
	for _, bad := range []string{"", "80c000", "#80c0", "#zzzzzz"} {
		if _, _, _, ok := parseHex(bad); ok {
			t.Fatalf("parseHex(%q) should fail", bad)
		}
	}
}

func TestLayoutDocument(t *testing.T) {
	t.Parallel()

	doc := NewLayoutDocument(mergeLayout(t), nil)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded LayoutDocument
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Width != 2 || len(decoded.Nodes) != 4 || len(decoded.Edges) != 4 {
		t.Fatalf("unexpected document shape: %+v", decoded)
	}
	m := decoded.Nodes[0]
	if m.ID != "M" || m.Kind != "merge" || len(m.Labels) != 1 || m.Labels[0].Kind != "head" {
		t.Fatalf("unexpected first node %+v", m)
	}
	if decoded.Nodes[3].Author != "Alice" || decoded.Nodes[3].Kind != "branch" {
		t.Fatalf("unexpected root node %+v", decoded.Nodes[3])
	}
	styles := map[string]int{}
	for _, e := range decoded.Edges {
		styles[e.Style]++
	}
	if styles["direct"] != 2 || styles["merge"] != 1 || styles["branch"] != 1 {
		t.Fatalf("unexpected edge styles %v", styles)
	}
	if len(decoded.Palette) != len(graph.DefaultPalette) {
		t.Fatalf("palette has %d colors", len(decoded.Palette))
	}
	if !strings.Contains(buf.String(), `"short_id": "m1"`) {
		t.Fatalf("missing short id in %s", buf.String())
	}
}

func TestHighlightJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := HighlightJSON(&buf, []byte(`{"id": "M", "row": 0}`), darkTheme); err != nil {
		t.Fatalf("HighlightJSON: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") || !strings.Contains(out, `"id"`) {
		t.Fatalf("unexpected highlighted output %q", out)
	}
}

func TestThemeFor(t *testing.T) {
	orig := detectDarkMode
	t.Cleanup(func() { detectDarkMode = orig })

	if ThemeFor(ThemeDark) != darkTheme || ThemeFor(ThemeLight) != lightTheme {
		t.Fatalf("explicit preferences should not detect")
	}
	detectDarkMode = func() (bool, error) { return true, nil }
	if got := ThemeFor(ThemeAuto); !got.Dark {
		t.Fatalf("expected dark theme, got %+v", got)
	}
	detectDarkMode = func() (bool, error) { return true, errTest }
	if got := ThemeFor(ThemeAuto); got.Dark {
		t.Fatalf("detection errors should fall back to light")
	}
	if ThemeFor(ThemeDark).Palette()[0] != DarkPalette[0] || lightTheme.Palette()[0] != graph.DefaultPalette[0] {
		t.Fatalf("unexpected palettes")
	}
	if ThemePreferenceFromString(" Dark ") != ThemeDark || ThemePreferenceFromString("bogus") != ThemeAuto {
		t.Fatalf("unexpected preference parsing")
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("no desktop")
