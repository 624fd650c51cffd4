// Package editor holds per-document state on the front-end side: the
// view registry, each view's line cache, and the plugin/find/status
// bookkeeping the engine pushes at it.
//
// The engine owns the text. Nothing in this package edits a buffer;
// it only mirrors what update notifications describe.
package editor

import (
	"fmt"

	"github.com/sw5cc/xi-term/internal/core"
)

// StyleSpan is one resolved style run on a line. Offsets are UTF-8
// bytes into the line text.
type StyleSpan struct {
	Start int
	Len   int
	Style int
}

// Line is one cached line. Cursor offsets are UTF-8 bytes.
type Line struct {
	Text   string
	Ln     int
	Cursor []int
	Styles []StyleSpan
}

// LineCache mirrors the engine's view of a document: a run of invalid
// lines, the known lines (nil entries are invalid mid-document), and a
// trailing invalid run. The engine sends ops that transform one cache
// state into the next; anything else is a protocol violation.
type LineCache struct {
	invalidBefore int
	lines         []*Line
	invalidAfter  int

	annotations []byte
	pristine    bool
}

// NewLineCache returns an empty cache.
func NewLineCache() *LineCache {
	return &LineCache{pristine: true}
}

// Height is the document height in lines, invalid regions included.
func (c *LineCache) Height() int {
	return c.invalidBefore + len(c.lines) + c.invalidAfter
}

// Pristine reports whether the document matches its file on disk.
func (c *LineCache) Pristine() bool {
	return c.pristine
}

// Annotations returns the raw annotation payload of the last update.
func (c *LineCache) Annotations() []byte {
	return c.annotations
}

// Line returns the cached line at ix, or nil when the line is invalid
// or out of range.
func (c *LineCache) Line(ix int) *Line {
	ix -= c.invalidBefore
	if ix < 0 || ix >= len(c.lines) {
		return nil
	}
	return c.lines[ix]
}

// MissingRange is a half-open interval of invalid lines.
type MissingRange struct {
	First int
	Last  int
}

// Missing returns the invalid intervals intersecting [first, last).
// Scrolling uses this to ask the engine for lines it never sent.
func (c *LineCache) Missing(first, last int) []MissingRange {
	var out []MissingRange
	if last > c.Height() {
		last = c.Height()
	}

	run := -1
	for i := first; i < last; i++ {
		if c.Line(i) == nil {
			if run < 0 {
				run = i
			}
		} else if run >= 0 {
			out = append(out, MissingRange{First: run, Last: i})
			run = -1
		}
	}
	if run >= 0 {
		out = append(out, MissingRange{First: run, Last: last})
	}
	return out
}

// ApplyUpdate transforms the cache by one update notification. Ops
// consume the old state left to right; the transformed state replaces
// it atomically on success.
func (c *LineCache) ApplyUpdate(u core.UpdatePayload) error {
	var (
		newInvalidBefore int
		newLines         []*Line
		newInvalidAfter  int
	)
	oldIx := 0

	// Pending trailing invalids become explicit nils once a concrete
	// line follows them.
	flushInvalid := func() {
		for ; newInvalidAfter > 0; newInvalidAfter-- {
			newLines = append(newLines, nil)
		}
	}
	appendInvalid := func(n int) {
		if len(newLines) == 0 {
			newInvalidBefore += n
		} else {
			newInvalidAfter += n
		}
	}

	for _, op := range u.Ops {
		n := op.N
		if n < 0 {
			return fmt.Errorf("update op %q with negative count %d", op.Op, n)
		}

		switch op.Op {
		case core.OpInvalidate:
			appendInvalid(n)

		case core.OpInsert:
			if len(op.Lines) < n {
				return fmt.Errorf("ins op wants %d lines, carries %d", n, len(op.Lines))
			}
			flushInvalid()
			for i := 0; i < n; i++ {
				newLines = append(newLines, decodeLine(op.Lines[i]))
			}

		case core.OpCopy, core.OpUpdate:
			// ln numbers the first line of the op's old-cache range;
			// consumed invalid lines advance it too.
			ln := op.Ln

			// Old invalid-before region copies as invalid.
			if oldIx < c.invalidBefore {
				nInvalid := min(n, c.invalidBefore-oldIx)
				appendInvalid(nInvalid)
				oldIx += nInvalid
				n -= nInvalid
				if ln > 0 {
					ln += nInvalid
				}
			}

			if n > 0 && oldIx < c.invalidBefore+len(c.lines) {
				nCopy := min(n, c.invalidBefore+len(c.lines)-oldIx)
				start := oldIx - c.invalidBefore
				flushInvalid()

				if op.Op == core.OpCopy {
					for i := 0; i < nCopy; i++ {
						line := c.lines[start+i]
						if line != nil && ln > 0 {
							renumbered := *line
							renumbered.Ln = ln
							line = &renumbered
						}
						if ln > 0 {
							ln++
						}
						newLines = append(newLines, line)
					}
				} else {
					// update replaces cursors and styles, text stays.
					for i := 0; i < nCopy; i++ {
						old := c.lines[start+i]
						if old == nil || i >= len(op.Lines) {
							newLines = append(newLines, old)
							continue
						}
						fresh := decodeLine(op.Lines[i])
						fresh.Text = old.Text
						if fresh.Ln == 0 {
							fresh.Ln = old.Ln
						}
						newLines = append(newLines, fresh)
					}
				}
				oldIx += nCopy
				n -= nCopy
			}

			// Past the old end there is nothing to copy from.
			if n > 0 {
				appendInvalid(n)
				oldIx += n
			}

		case core.OpSkip:
			oldIx += n

		default:
			return fmt.Errorf("unknown update op %q", op.Op)
		}
	}

	// Trailing nils compact back into the invalid-after count.
	for len(newLines) > 0 && newLines[len(newLines)-1] == nil {
		newLines = newLines[:len(newLines)-1]
		newInvalidAfter++
	}

	c.invalidBefore = newInvalidBefore
	c.lines = newLines
	c.invalidAfter = newInvalidAfter
	c.pristine = u.Pristine
	if len(u.Annotations) > 0 {
		c.annotations = []byte(u.Annotations)
	}
	return nil
}

// decodeLine converts a wire line, resolving relative style triples
// into absolute spans.
func decodeLine(l core.Line) *Line {
	return &Line{
		Text:   l.Text,
		Ln:     l.Ln,
		Cursor: l.Cursor,
		Styles: decodeSpans(l.Styles),
	}
}

// decodeSpans expands [rel_start, len, style] triples. Each start is
// relative to the end of the previous span; negative values produce
// overlapping spans.
func decodeSpans(triples []int) []StyleSpan {
	if len(triples) < 3 {
		return nil
	}
	spans := make([]StyleSpan, 0, len(triples)/3)
	pos := 0
	for i := 0; i+2 < len(triples); i += 3 {
		start := pos + triples[i]
		length := triples[i+1]
		spans = append(spans, StyleSpan{Start: start, Len: length, Style: triples[i+2]})
		pos = start + length
	}
	return spans
}
