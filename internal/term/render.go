package term

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/sw5cc/xi-term/internal/editor"
	"github.com/sw5cc/xi-term/internal/style"
)

// layout splits the screen into gutter, text area, and status row.
type layout struct {
	gutterWidth int
	textWidth   int
	textHeight  int
}

// computeLayout sizes the chrome. The gutter is wide enough for the
// largest line number plus one space of padding; the bottom row is the
// status line.
func computeLayout(width, height, docHeight int, gutter bool) layout {
	l := layout{textHeight: height - 1}
	if l.textHeight < 0 {
		l.textHeight = 0
	}
	if gutter {
		l.gutterWidth = len(strconv.Itoa(max(docHeight, 1))) + 1
	}
	l.textWidth = width - l.gutterWidth
	if l.textWidth < 0 {
		l.textWidth = 0
	}
	return l
}

// toTcell flattens a resolved style over the theme. A terminal cell
// holds one opaque color pair, so translucent selection and highlight
// backgrounds blend against the theme background here.
func toTcell(s style.Style, t style.Theme) tcell.Style {
	fg := t.Foreground
	if s.HasFg {
		fg = s.Fg.Over(t.Background)
	}
	bg := t.Background
	if s.HasBg {
		bg = s.Bg.Over(t.Background)
	}
	st := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(fg.R), int32(fg.G), int32(fg.B))).
		Background(tcell.NewRGBColor(int32(bg.R), int32(bg.G), int32(bg.B)))
	if s.Bold() {
		st = st.Bold(true)
	}
	if s.Italic {
		st = st.Italic(true)
	}
	if s.Underline {
		st = st.Underline(true)
	}
	return st
}

// spanStyle folds every span covering a byte offset into one style.
// Later spans win field by field, so syntax foregrounds sit on top of
// selection backgrounds.
func spanStyle(m *style.Map, spans []editor.StyleSpan, offset int) style.Style {
	var out style.Style
	for _, sp := range spans {
		if offset < sp.Start || offset >= sp.Start+sp.Len {
			continue
		}
		s := m.Get(sp.Style)
		if s.HasFg {
			out.Fg, out.HasFg = s.Fg, true
		}
		if s.HasBg {
			out.Bg, out.HasBg = s.Bg, true
		}
		if s.Weight != 0 {
			out.Weight = s.Weight
		}
		out.Italic = out.Italic || s.Italic
		out.Underline = out.Underline || s.Underline
	}
	return out
}

// paintView draws the visible region of v and reports the screen
// position of the primary caret when it is on screen. Additional
// carets render reversed; the hardware cursor marks the primary one.
func paintView(screen tcell.Screen, l layout, v *editor.View, styles *style.Map, theme style.Theme, tabWidth int) (cx, cy int, cursor bool) {
	gutterStyle := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(theme.GutterForeground.R), int32(theme.GutterForeground.G), int32(theme.GutterForeground.B))).
		Background(tcell.NewRGBColor(int32(theme.Gutter.R), int32(theme.Gutter.G), int32(theme.Gutter.B)))

	first, _ := v.Visible()
	for row := 0; row < l.textHeight; row++ {
		line := v.Cache().Line(first + row)

		if l.gutterWidth > 0 {
			for x := 0; x < l.gutterWidth; x++ {
				screen.SetContent(x, row, ' ', nil, gutterStyle)
			}
			if line != nil && line.Ln > 0 {
				num := strconv.Itoa(line.Ln)
				x := l.gutterWidth - 1 - len(num)
				if x >= 0 {
					drawText(screen, x, row, l.gutterWidth-1, gutterStyle, num)
				}
			}
		}

		if line == nil {
			continue
		}
		text := trimEOL(line.Text)
		paintLine(screen, l, row, text, line.Styles, styles, theme, tabWidth)

		for i, c := range line.Cursor {
			col := byteToColumn(text, c, tabWidth)
			if col >= l.textWidth {
				continue
			}
			x, y := l.gutterWidth+col, row
			if i == 0 && !cursor {
				cx, cy, cursor = x, y, true
				continue
			}
			r, comb, st, _ := screen.GetContent(x, y)
			screen.SetContent(x, y, r, comb, st.Reverse(true))
		}
	}
	return cx, cy, cursor
}

// paintLine draws one line's text with its style spans. Content past
// the text width is clipped; there is no horizontal scrolling.
func paintLine(screen tcell.Screen, l layout, row int, text string, spans []editor.StyleSpan, styles *style.Map, theme style.Theme, tabWidth int) {
	if tabWidth <= 0 {
		tabWidth = defaultTabWidth
	}
	col := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if col >= l.textWidth {
			return
		}
		start, _ := g.Positions()
		st := toTcell(spanStyle(styles, spans, start), theme)
		x := l.gutterWidth + col

		if g.Str() == "\t" {
			w := tabWidth - col%tabWidth
			for i := 0; i < w && col+i < l.textWidth; i++ {
				screen.SetContent(x+i, row, ' ', nil, st)
			}
			col += w
			continue
		}

		runes := g.Runes()
		screen.SetContent(x, row, runes[0], runes[1:], st)
		col += g.Width()
	}
}

// drawText writes s from (x, y), clipping at maxX, and returns the
// column after the last cell written.
func drawText(screen tcell.Screen, x, y, maxX int, st tcell.Style, s string) int {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if x+w > maxX {
			break
		}
		runes := g.Runes()
		screen.SetContent(x, y, runes[0], runes[1:], st)
		x += w
	}
	return x
}
