package render

import (
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	darkmode "github.com/thiagokokada/dark-mode-go"

	"github.com/thiagokokada/gitlanes/internal/graph"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

type Theme struct {
	Name string
	Dark bool
}

var (
	lightTheme = Theme{Name: "light"}
	darkTheme  = Theme{Name: "dark", Dark: true}

	// DarkPalette is DefaultPalette lightened for dark backgrounds.
	DarkPalette = graph.Palette{
		"#8080ff",
		"#60c060",
		"#ff6060",
		"#c0c040",
		"#c060c0",
		"#40c0c0",
		"#a0e040",
		"#ffa040",
		"#a080ff",
		"#40e0a0",
		"#40a0ff",
	}

	detectDarkMode = darkmode.IsDarkMode
)

// ThemeFor resolves a preference, asking the desktop for ThemeAuto. Detection
// failures fall back to the light theme.
func ThemeFor(pref ThemePreference) Theme {
	switch pref {
	case ThemeDark:
		return darkTheme
	case ThemeLight:
		return lightTheme
	default:
		if detectDarkMode != nil {
			dark, err := detectDarkMode()
			if err != nil {
				slog.Debug("detect dark-mode", slog.Any("error", err))
			} else if dark {
				return darkTheme
			}
		}
		return lightTheme
	}
}

// Palette returns the lane palette for t.
func (t Theme) Palette() graph.Palette {
	if t.Dark {
		return DarkPalette
	}
	return graph.DefaultPalette
}

func (t Theme) ChromaStyle() *chroma.Style {
	name := "github"
	if t.Dark {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}
