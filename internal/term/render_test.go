package term

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/sw5cc/xi-term/internal/core"
	"github.com/sw5cc/xi-term/internal/editor"
	"github.com/sw5cc/xi-term/internal/style"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func rgb(c style.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func assertRune(t *testing.T, s tcell.Screen, x, y int, want rune) {
	t.Helper()
	got, _, _, _ := s.GetContent(x, y)
	if got != want {
		t.Errorf("cell (%d,%d) = %q, want %q", x, y, got, want)
	}
}

func TestComputeLayout(t *testing.T) {
	tests := []struct {
		name               string
		width, height, doc int
		gutter             bool
		want               layout
	}{
		{"standard", 80, 24, 100, true, layout{gutterWidth: 4, textWidth: 76, textHeight: 23}},
		{"no gutter", 80, 24, 100, false, layout{gutterWidth: 0, textWidth: 80, textHeight: 23}},
		{"empty doc still one digit", 80, 24, 0, true, layout{gutterWidth: 2, textWidth: 78, textHeight: 23}},
		{"tiny terminal clamps", 3, 1, 1000, true, layout{gutterWidth: 5, textWidth: 0, textHeight: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeLayout(tt.width, tt.height, tt.doc, tt.gutter); got != tt.want {
				t.Errorf("computeLayout = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToTcell(t *testing.T) {
	theme := style.DefaultTheme()

	st := toTcell(style.Style{}, theme)
	fg, bg, attrs := st.Decompose()
	if want := rgb(theme.Foreground); fg != want {
		t.Errorf("plain fg = %v, want %v", fg, want)
	}
	if want := rgb(theme.Background); bg != want {
		t.Errorf("plain bg = %v, want %v", bg, want)
	}
	if attrs != 0 {
		t.Errorf("plain style carries attrs %v", attrs)
	}

	fancy := toTcell(style.Style{Weight: 700, Italic: true, Underline: true}, theme)
	_, _, attrs = fancy.Decompose()
	if attrs&tcell.AttrBold == 0 || attrs&tcell.AttrItalic == 0 || attrs&tcell.AttrUnderline == 0 {
		t.Errorf("attrs = %v, want bold+italic+underline", attrs)
	}

	// Translucent backgrounds flatten against the theme background.
	half := style.Color{R: 0, G: 0, B: 255, A: 128}
	_, bg, _ = toTcell(style.Style{Bg: half, HasBg: true}, theme).Decompose()
	if want := rgb(half.Over(theme.Background)); bg != want {
		t.Errorf("translucent bg = %v, want flattened %v", bg, want)
	}
}

func TestSpanStyle(t *testing.T) {
	m := style.NewMap()
	red := uint32(0xffff0000)
	m.Define(core.DefStyle{ID: 2, FgColor: &red})

	spans := []editor.StyleSpan{
		{Start: 0, Len: 5, Style: style.StyleSelection},
		{Start: 2, Len: 2, Style: 2},
	}

	// Syntax foreground layers on top of the selection background.
	both := spanStyle(m, spans, 2)
	if !both.HasBg {
		t.Error("selection bg lost under syntax span")
	}
	if !both.HasFg || both.Fg != style.FromARGB(red) {
		t.Errorf("fg = %v (has=%v), want syntax red", both.Fg, both.HasFg)
	}

	selOnly := spanStyle(m, spans, 0)
	if !selOnly.HasBg || selOnly.HasFg {
		t.Errorf("offset 0 = %+v, want selection bg only", selOnly)
	}

	if plain := spanStyle(m, spans, 5); plain.HasFg || plain.HasBg {
		t.Errorf("offset past spans = %+v, want unstyled", plain)
	}
}

func TestPaintView(t *testing.T) {
	v := editor.NewView("view-1", "main.go")
	err := v.ApplyUpdate(core.UpdatePayload{
		Pristine: true,
		Ops: []core.UpdateOp{{Op: core.OpInsert, N: 2, Lines: []core.Line{
			{Text: "func main() {\n", Ln: 1, Cursor: []int{5, 10}, Styles: []int{0, 4, 2}},
			{Text: "}\n", Ln: 2},
		}}},
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	v.SetVisible(0, 4)

	styles := style.NewMap()
	red := uint32(0xffff0000)
	styles.Define(core.DefStyle{ID: 2, FgColor: &red})
	theme := style.DefaultTheme()

	s := newSimScreen(t, 20, 5)
	s.Fill(' ', toTcell(style.Style{}, theme))

	l := computeLayout(20, 5, v.Cache().Height(), true)
	if l.gutterWidth != 2 {
		t.Fatalf("gutter width = %d, want 2", l.gutterWidth)
	}

	cx, cy, cursor := paintView(s, l, v, styles, theme, 4)
	s.Show()

	if !cursor || cx != l.gutterWidth+5 || cy != 0 {
		t.Errorf("primary caret at (%d,%d,%v), want (%d,0,true)", cx, cy, cursor, l.gutterWidth+5)
	}

	// Line numbers, right-aligned with one space of padding.
	assertRune(t, s, 0, 0, '1')
	assertRune(t, s, 0, 1, '2')

	// Text starts after the gutter.
	assertRune(t, s, l.gutterWidth, 0, 'f')
	assertRune(t, s, l.gutterWidth, 1, '}')

	// Style id 2 colors "func"; the cell after it is back to theme.
	_, _, st, _ := s.GetContent(l.gutterWidth, 0)
	fg, _, _ := st.Decompose()
	if want := tcell.NewRGBColor(255, 0, 0); fg != want {
		t.Errorf("styled fg = %v, want %v", fg, want)
	}
	_, _, st, _ = s.GetContent(l.gutterWidth+4, 0)
	fg, _, _ = st.Decompose()
	if want := rgb(theme.Foreground); fg != want {
		t.Errorf("plain fg = %v, want theme foreground %v", fg, want)
	}

	// The secondary caret renders reversed.
	_, _, st, _ = s.GetContent(l.gutterWidth+10, 0)
	if _, _, attrs := st.Decompose(); attrs&tcell.AttrReverse == 0 {
		t.Error("secondary caret not reversed")
	}

	// Rows past the document still get a gutter column.
	_, _, st, _ = s.GetContent(0, 2)
	if _, bg, _ := st.Decompose(); bg != rgb(theme.Gutter) {
		t.Errorf("empty row gutter bg wrong")
	}
}

func TestPaintLineExpandsTabs(t *testing.T) {
	v := editor.NewView("view-1", "")
	err := v.ApplyUpdate(core.UpdatePayload{
		Ops: []core.UpdateOp{{Op: core.OpInsert, N: 1, Lines: []core.Line{
			{Text: "a\tb\n", Ln: 1},
		}}},
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	v.SetVisible(0, 1)

	theme := style.DefaultTheme()
	s := newSimScreen(t, 12, 2)
	s.Fill(' ', toTcell(style.Style{}, theme))

	l := computeLayout(12, 2, 1, false)
	paintView(s, l, v, style.NewMap(), theme, 4)
	s.Show()

	assertRune(t, s, 0, 0, 'a')
	for x := 1; x < 4; x++ {
		assertRune(t, s, x, 0, ' ')
	}
	assertRune(t, s, 4, 0, 'b')
}
