package style

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/sw5cc/xi-term/internal/core"
)

// Color is an sRGB color with straight alpha. Styles and themes arrive
// from the engine in two encodings (packed ARGB words and r/g/b/a
// objects); both normalize to this.
type Color struct {
	R, G, B, A uint8
}

// FromARGB decodes the packed 32-bit ARGB word used by style
// definitions.
func FromARGB(v uint32) Color {
	return Color{
		A: uint8(v >> 24),
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}
}

// FromWire converts an engine theme color, falling back when the theme
// omits the field.
func FromWire(c *core.Color, fallback Color) Color {
	if c == nil {
		return fallback
	}
	return Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// RGB builds an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// colorful converts to a go-colorful color, dropping alpha.
func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func fromColorful(cc colorful.Color, a uint8) Color {
	r, g, b := cc.Clamped().RGB255()
	return Color{R: r, G: g, B: b, A: a}
}

// Mix blends toward other in RGB space. t=0 keeps c, t=1 gives other.
func (c Color) Mix(other Color, t float64) Color {
	return fromColorful(c.colorful().BlendRgb(other.colorful(), t), 255)
}

// Over composites c onto an opaque background using c's alpha.
// Terminal cells cannot blend at draw time, so translucent theme
// colors (selections, highlights) are flattened up front.
func (c Color) Over(bg Color) Color {
	if c.A == 255 {
		return c
	}
	if c.A == 0 {
		return bg
	}
	t := float64(c.A) / 255
	return fromColorful(bg.colorful().BlendRgb(c.colorful(), t), 255)
}

// IsDark reports whether the color reads as dark, using perceived
// luminance in Luv space.
func (c Color) IsDark() bool {
	l, _, _ := c.colorful().Luv()
	return l < 0.5
}

// Hex renders #rrggbb for logs and persisted settings.
func (c Color) Hex() string {
	return c.colorful().Hex()
}

// String implements fmt.Stringer.
func (c Color) String() string {
	if c.A != 255 {
		return fmt.Sprintf("%s/%02x", c.Hex(), c.A)
	}
	return c.Hex()
}
