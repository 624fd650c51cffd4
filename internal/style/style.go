// Package style holds the document styling state shared by every
// view: the style table the engine populates with def_style, the
// active theme, and the font metrics derived from them.
//
// The engine owns style semantics. This package only remembers what it
// was told and answers lookups; rendering maps the results onto
// terminal cells.
package style

import (
	"sync"

	"github.com/sw5cc/xi-term/internal/core"
)

// Reserved style ids. The engine assigns these meanings and never
// redefines them through def_style.
const (
	// StyleSelection colors the active selection.
	StyleSelection = 0
	// StyleFind colors find-match highlights.
	StyleFind = 1
	// FirstSyntaxStyle is the first id the engine allocates for
	// syntax highlighting.
	FirstSyntaxStyle = 2
)

// Weight threshold above which a style renders bold.
const boldWeight = 700

// Style is one entry of the style table. Unset colors inherit the
// theme's foreground/background at render time.
type Style struct {
	Fg    Color
	Bg    Color
	HasFg bool
	HasBg bool

	Weight    int
	Italic    bool
	Underline bool
}

// Bold reports whether the weight renders as bold.
func (s Style) Bold() bool {
	return s.Weight >= boldWeight
}

// Map is the id-indexed style table. The dispatcher's reader goroutine
// writes definitions while render passes read concurrently, hence the
// lock.
type Map struct {
	mu     sync.RWMutex
	styles map[int]Style
	def    Style
}

// NewMap creates an empty style table seeded with the default theme's
// reserved entries.
func NewMap() *Map {
	m := &Map{styles: make(map[int]Style)}
	m.SetTheme(DefaultTheme())
	return m
}

// Define installs or replaces one style from a def_style notification.
// Packed ARGB colors are flattened against nothing here; translucency
// is resolved at render time against the line background.
func (m *Map) Define(d core.DefStyle) {
	s := Style{
		Italic:    d.Italic,
		Underline: d.Underline,
	}
	if d.FgColor != nil {
		s.Fg = FromARGB(*d.FgColor)
		s.HasFg = true
	}
	if d.BgColor != nil {
		s.Bg = FromARGB(*d.BgColor)
		s.HasBg = true
	}
	if d.Weight != nil {
		s.Weight = *d.Weight
	}

	m.mu.Lock()
	m.styles[d.ID] = s
	m.mu.Unlock()
}

// Get returns the style for an id. Unknown ids resolve to the default
// style: a stale or early lookup renders plainly instead of failing.
func (m *Map) Get(id int) Style {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.styles[id]; ok {
		return s
	}
	return m.def
}

// Defined reports whether an id has an explicit entry.
func (m *Map) Defined(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.styles[id]
	return ok
}

// Len returns the number of defined styles.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.styles)
}

// SetTheme reseeds the reserved selection and find entries from a
// theme. Engine-defined syntax styles are kept; the engine redefines
// them itself after a theme change.
func (m *Map) SetTheme(t Theme) {
	selection := Style{
		Bg:    t.Selection,
		HasBg: true,
	}
	if t.SelectionForeground.A != 0 {
		selection.Fg = t.SelectionForeground
		selection.HasFg = true
	}

	find := Style{
		Bg:    t.FindHighlight,
		HasBg: true,
	}
	if t.FindHighlightForeground.A != 0 {
		find.Fg = t.FindHighlightForeground
		find.HasFg = true
	}

	m.mu.Lock()
	m.styles[StyleSelection] = selection
	m.styles[StyleFind] = find
	m.mu.Unlock()
}
