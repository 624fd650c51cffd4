package style

import "github.com/sw5cc/xi-term/internal/core"

// Theme is the resolved color set for rendering. Every field is
// concrete: wire-level omissions are filled in by FromSettings, so
// render code never branches on presence.
type Theme struct {
	Name string

	Foreground    Color
	Background    Color
	Caret         Color
	LineHighlight Color

	Selection           Color
	SelectionForeground Color
	InactiveSelection   Color

	FindHighlight           Color
	FindHighlightForeground Color

	Gutter           Color
	GutterForeground Color

	Shadow Color
}

// DefaultTheme is the palette shown between startup and the engine's
// first theme_changed. Light, GitHub-flavored.
func DefaultTheme() Theme {
	return Theme{
		Name:          "InspiredGitHub",
		Foreground:    RGB(50, 50, 50),
		Background:    RGB(255, 255, 255),
		Caret:         RGB(50, 50, 50),
		LineHighlight: RGB(245, 245, 245),

		Selection:         RGB(200, 200, 250),
		InactiveSelection: RGB(228, 228, 248),

		FindHighlight:           RGB(255, 251, 221),
		FindHighlightForeground: RGB(50, 50, 50),

		Gutter:           RGB(255, 255, 255),
		GutterForeground: RGB(167, 167, 167),
	}
}

// FromSettings resolves a theme_changed payload into a full palette.
// Missing colors fall back to derivations from the colors that are
// present, so sparse themes still render coherently. A zero alpha in
// the result means the theme genuinely has no such color.
func FromSettings(name string, s core.ThemeSettings) Theme {
	d := DefaultTheme()

	t := Theme{Name: name}
	t.Foreground = FromWire(s.Foreground, d.Foreground)
	t.Background = FromWire(s.Background, d.Background)
	t.Caret = FromWire(s.Caret, t.Foreground)
	t.LineHighlight = FromWire(s.LineHighlight, t.Background.Mix(t.Foreground, 0.05))

	t.Selection = FromWire(s.Selection, t.Background.Mix(t.Foreground, 0.2))
	t.SelectionForeground = FromWire(s.SelectionForeground, Color{})
	t.InactiveSelection = FromWire(s.InactiveSelection, t.Selection.Mix(t.Background, 0.5))

	t.FindHighlight = FromWire(s.FindHighlight, d.FindHighlight)
	t.FindHighlightForeground = FromWire(s.FindHighlightForeground, Color{})

	t.Gutter = FromWire(s.Gutter, t.Background)
	t.GutterForeground = FromWire(s.GutterForeground, t.Foreground.Mix(t.Background, 0.5))

	t.Shadow = FromWire(s.Shadow, Color{})
	return t
}

// IsDark reports whether the theme background is dark. Rendering picks
// fallback accents by this.
func (t Theme) IsDark() bool {
	return t.Background.IsDark()
}
