package term

import (
	"strings"

	"github.com/rivo/uniseg"
)

// defaultTabWidth applies when a view's config carries no tab_size.
const defaultTabWidth = 4

// trimEOL strips the line terminator the engine includes on every
// pushed line but the last.
func trimEOL(text string) string {
	text = strings.TrimSuffix(text, "\n")
	return strings.TrimSuffix(text, "\r")
}

// displayWidth returns the terminal columns text occupies starting at
// startCol, with tabs expanded to the next stop.
func displayWidth(text string, startCol, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = defaultTabWidth
	}
	col := startCol
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if g.Str() == "\t" {
			col += tabWidth - col%tabWidth
		} else {
			col += g.Width()
		}
	}
	return col - startCol
}

// byteToColumn maps a byte offset in line text to a screen column.
// Offsets inside a grapheme cluster map to the cluster's column.
func byteToColumn(text string, offset, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = defaultTabWidth
	}
	col := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		start, _ := g.Positions()
		if start >= offset {
			return col
		}
		if g.Str() == "\t" {
			col += tabWidth - col%tabWidth
		} else {
			col += g.Width()
		}
	}
	return col
}

// columnToByte maps a screen column to the byte offset of the grapheme
// covering it. Columns past the end of the line map to the line
// length, so clicks in the right margin land on the line end.
func columnToByte(text string, col, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = defaultTabWidth
	}
	cur := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		var w int
		if g.Str() == "\t" {
			w = tabWidth - cur%tabWidth
		} else {
			w = g.Width()
		}
		if col < cur+w {
			start, _ := g.Positions()
			return start
		}
		cur += w
	}
	return len(text)
}
