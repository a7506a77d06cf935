package choropleth

import (
	"fmt"
	"image/color"
	"os"

	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// RenderOptions configures the output image.
type RenderOptions struct {
	// Path is the output PNG path. An existing file is overwritten.
	Path string
	// Title is drawn above the map.
	Title string
	// LegendLabel annotates the colorbar.
	LegendLabel string
	// WidthInches and HeightInches size the canvas. Zero values take the
	// 12x8 defaults.
	WidthInches  float64
	HeightInches float64
	// DPI is the raster resolution (default 300).
	DPI int
	// Gradient is the color scale (default DefaultGradient).
	Gradient *Gradient
}

// IOError reports a failure to write the output image.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write output image %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// legendWidth is the horizontal share of the canvas reserved for the
// colorbar.
const legendWidth = 1.1 * vg.Inch

// Render draws the joined states as a choropleth map with a colorbar legend
// and writes a PNG to opts.Path. Fill colors come from the gradient mapped
// over rng; missing states are filled grey and labeled without a value.
func Render(states []JoinedState, rng Range, opts RenderOptions) error {
	if opts.WidthInches <= 0 {
		opts.WidthInches = 12
	}
	if opts.HeightInches <= 0 {
		opts.HeightInches = 8
	}
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	gradient := opts.Gradient
	if gradient == nil {
		gradient = DefaultGradient()
	}
	gradient.SetMin(rng.Min)
	gradient.SetMax(rng.Max)

	mapPlot, err := buildMapPlot(states, gradient, opts.Title)
	if err != nil {
		return err
	}
	legendPlot := buildLegendPlot(gradient, opts.LegendLabel)

	width := vg.Length(opts.WidthInches) * vg.Inch
	height := vg.Length(opts.HeightInches) * vg.Inch
	img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(opts.DPI))
	canvas := draw.New(img)

	mapPlot.Draw(draw.Crop(canvas, 0, -legendWidth, 0, 0))
	// The colorbar is shrunk vertically so it does not dominate the map.
	inset := height / 5
	legendPlot.Draw(draw.Crop(canvas, width-legendWidth, 0, inset, -inset))

	f, err := os.Create(opts.Path)
	if err != nil {
		return &IOError{Path: opts.Path, Err: err}
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return &IOError{Path: opts.Path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: opts.Path, Err: err}
	}
	return nil
}

// buildMapPlot assembles the state polygons and centroid labels.
func buildMapPlot(states []JoinedState, gradient *Gradient, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Title.TextStyle.Font.Weight = xfont.WeightBold
	p.HideAxes()

	labelXYs := make(plotter.XYs, 0, len(states))
	labelTexts := make([]string, 0, len(states))
	labelFilled := make([]bool, 0, len(states))

	for _, s := range states {
		rings := make([]plotter.XYer, 0, len(s.Geometry.Rings))
		for _, ring := range s.Geometry.Rings {
			xys := make(plotter.XYs, len(ring))
			for i, pt := range ring {
				xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
			}
			rings = append(rings, xys)
		}
		poly, err := plotter.NewPolygon(rings...)
		if err != nil {
			return nil, fmt.Errorf("build polygon for %s: %w", s.Geometry.Name, err)
		}

		fill := color.Color(MissingColor)
		if !s.Missing {
			fill, err = gradient.At(s.Value)
			if err != nil {
				return nil, fmt.Errorf("color for %s: %w", s.Geometry.Name, err)
			}
		}
		poly.Color = fill
		poly.LineStyle.Color = BorderColor
		poly.LineStyle.Width = vg.Points(1.2)
		p.Add(poly)

		c := s.Geometry.Centroid()
		labelXYs = append(labelXYs, plotter.XY{X: c.X, Y: c.Y})
		if s.Missing {
			labelTexts = append(labelTexts, s.Geometry.Abbreviation)
		} else {
			labelTexts = append(labelTexts, fmt.Sprintf("%s\n%.2f", s.Geometry.Abbreviation, s.Value))
		}
		labelFilled = append(labelFilled, !s.Missing)
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelTexts})
	if err != nil {
		return nil, fmt.Errorf("build state labels: %w", err)
	}
	for i := range labels.TextStyle {
		style := &labels.TextStyle[i]
		style.Font.Size = vg.Points(9)
		style.XAlign = draw.XCenter
		style.YAlign = draw.YCenter
		if labelFilled[i] {
			style.Color = color.White
			style.Font.Weight = xfont.WeightBold
		} else {
			style.Color = color.Black
		}
	}
	p.Add(labels)

	return p, nil
}

// buildLegendPlot wraps the gradient in a vertical colorbar.
func buildLegendPlot(gradient *Gradient, label string) *plot.Plot {
	p := plot.New()
	bar := &plotter.ColorBar{ColorMap: gradient}
	bar.Vertical = true
	p.Add(bar)
	p.HideX()
	p.Y.Label.Text = label
	p.Y.Label.TextStyle.Font.Size = vg.Points(11)
	p.Y.Label.TextStyle.Font.Weight = xfont.WeightBold
	return p
}
