package choropleth

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
)

// defaultStops is the low-to-high gradient used when no custom scheme is
// configured.
var defaultStops = []string{"#85011C", "#6E082D", "#BA005A", "#462A8C", "#172378"}

// MissingColor is the fill for states without data.
var MissingColor = color.RGBA{R: 0xDE, G: 0xDE, B: 0xDE, A: 0xFF}

// BorderColor is the state boundary stroke color.
var BorderColor = color.White

// Gradient is a continuous color scale over a numeric range, built from a
// sequence of hex color stops with linear RGB interpolation between
// neighbors. It implements palette.ColorMap so gonum/plot can draw it as a
// colorbar legend.
type Gradient struct {
	stops    []colorful.Color
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*Gradient)(nil)

// NewGradient builds a gradient from hex color stops (e.g. "#85011C").
// At least two stops are required.
func NewGradient(hexStops []string) (*Gradient, error) {
	if len(hexStops) < 2 {
		return nil, fmt.Errorf("gradient needs at least two color stops, got %d", len(hexStops))
	}
	stops := make([]colorful.Color, len(hexStops))
	for i, h := range hexStops {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("gradient stop %d: %w", i, err)
		}
		stops[i] = c
	}
	return &Gradient{stops: stops, alpha: 1}, nil
}

// DefaultGradient returns the built-in low-to-high scale.
func DefaultGradient() *Gradient {
	g, err := NewGradient(defaultStops)
	if err != nil {
		panic("invalid built-in gradient: " + err.Error())
	}
	return g
}

// At returns the color for v. Values outside [Min, Max] and NaN are an
// error. A degenerate range (Min == Max) maps every value to the first
// stop, matching how a single-valued dataset normalizes.
func (g *Gradient) At(v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, palette.ErrNaN
	}
	if v < g.min {
		return nil, palette.ErrUnderflow
	}
	if v > g.max {
		return nil, palette.ErrOverflow
	}

	var t float64
	if g.max > g.min {
		t = (v - g.min) / (g.max - g.min)
	}
	c := g.interpolate(t)
	if g.alpha == 1 {
		return c, nil
	}
	r, gg, b := c.RGB255()
	return color.NRGBA{R: r, G: gg, B: b, A: uint8(g.alpha*255 + 0.5)}, nil
}

// interpolate maps t in [0, 1] across the stop sequence.
func (g *Gradient) interpolate(t float64) colorful.Color {
	segments := float64(len(g.stops) - 1)
	pos := t * segments
	i := int(pos)
	if i >= len(g.stops)-1 {
		return g.stops[len(g.stops)-1]
	}
	return g.stops[i].BlendRgb(g.stops[i+1], pos-float64(i)).Clamped()
}

// Min returns the lower bound of the mapped range.
func (g *Gradient) Min() float64 { return g.min }

// SetMin sets the lower bound of the mapped range.
func (g *Gradient) SetMin(v float64) { g.min = v }

// Max returns the upper bound of the mapped range.
func (g *Gradient) Max() float64 { return g.max }

// SetMax sets the upper bound of the mapped range.
func (g *Gradient) SetMax(v float64) { g.max = v }

// Alpha returns the gradient opacity.
func (g *Gradient) Alpha() float64 { return g.alpha }

// SetAlpha sets the gradient opacity. It panics outside [0, 1], per the
// palette.ColorMap contract.
func (g *Gradient) SetAlpha(a float64) {
	if a < 0 || a > 1 {
		panic("gradient alpha must be between 0 and 1")
	}
	g.alpha = a
}

// Palette renders the gradient down to a fixed number of colors.
func (g *Gradient) Palette(colors int) palette.Palette {
	cs := make([]color.Color, colors)
	if colors == 1 {
		cs[0] = g.interpolate(0)
		return paletteColors(cs)
	}
	for i := range cs {
		cs[i] = g.interpolate(float64(i) / float64(colors-1))
	}
	return paletteColors(cs)
}

type paletteColors []color.Color

func (p paletteColors) Colors() []color.Color { return p }
