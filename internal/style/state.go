package style

import (
	"math"
	"sync"
)

// FontSpec names the rendering font. The terminal draws whatever the
// emulator is configured with; the spec exists for metric estimation
// and for engine config round trips.
type FontSpec struct {
	Family string
	Size   float64
}

// DefaultFont is used until configuration says otherwise.
func DefaultFont() FontSpec {
	return FontSpec{Family: "monospace", Size: 14}
}

// TextMetrics are estimated pixel metrics for the current font. The
// engine asks for widths in pixels (measure_width) even when the
// front-end renders in cells; these scale cell counts to pixels.
type TextMetrics struct {
	LineHeight float64
	Baseline   float64
	CharWidth  float64
}

// DeriveMetrics computes metrics from a font spec. Pure: equal specs
// always yield equal metrics.
func DeriveMetrics(f FontSpec) TextMetrics {
	return TextMetrics{
		LineHeight: math.Ceil(f.Size * 1.2),
		Baseline:   math.Ceil(f.Size * 0.8),
		CharWidth:  f.Size * 0.6,
	}
}

// State is the shared theme and font, plus the metrics derived from
// them. One instance per application; views read it when rendering.
type State struct {
	mu      sync.RWMutex
	theme   Theme
	font    FontSpec
	metrics TextMetrics

	onRedraw func()
}

// NewState starts with the default theme and font.
func NewState() *State {
	return &State{
		theme:   DefaultTheme(),
		font:    DefaultFont(),
		metrics: DeriveMetrics(DefaultFont()),
	}
}

// OnRedraw registers the broadcast hook. Each apply calls it exactly
// once, including an apply that changes nothing.
func (s *State) OnRedraw(fn func()) {
	s.mu.Lock()
	s.onRedraw = fn
	s.mu.Unlock()
}

// ApplyTheme installs a theme and broadcasts one redraw.
func (s *State) ApplyTheme(t Theme) {
	s.mu.Lock()
	s.theme = t
	fn := s.onRedraw
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// ApplyFont installs a font, rederives metrics, and broadcasts one
// redraw.
func (s *State) ApplyFont(f FontSpec) {
	s.mu.Lock()
	s.font = f
	s.metrics = DeriveMetrics(f)
	fn := s.onRedraw
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Theme returns the active theme.
func (s *State) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// Font returns the active font spec.
func (s *State) Font() FontSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.font
}

// Metrics returns the metrics for the active font.
func (s *State) Metrics() TextMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}
