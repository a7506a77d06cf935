// Package shapefile provides the U.S. state boundary geometries, downloading
// and caching the boundary shapefile archive on first use.
package shapefile

import (
	"context"
	"fmt"
)

// Point is a single vertex in shapefile coordinate space.
type Point struct {
	X, Y float64
}

// Ring is a closed boundary ring.
type Ring []Point

// StateGeometry is one state's boundary as read from the shapefile.
type StateGeometry struct {
	// Name is the canonical full state name (shapefile NAME attribute).
	Name string
	// Abbreviation is the USPS code (shapefile STUSPS attribute).
	Abbreviation string
	// Rings holds the boundary rings. States with islands have more
	// than one.
	Rings []Ring
}

// Centroid returns the area-weighted centroid of the geometry's largest
// ring, used as the label anchor.
func (g StateGeometry) Centroid() Point {
	if len(g.Rings) == 0 {
		return Point{}
	}
	best := g.Rings[0]
	bestArea := ringArea(best)
	for _, ring := range g.Rings[1:] {
		if a := ringArea(ring); a > bestArea {
			best, bestArea = ring, a
		}
	}
	return ringCentroid(best)
}

// Provider yields the state boundary set. The production implementation
// caches a downloaded shapefile archive; tests substitute local fixtures.
type Provider interface {
	Boundaries(ctx context.Context) ([]StateGeometry, error)
}

// FetchError reports a failure to retrieve the boundary archive from its
// remote source.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch boundary archive from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FormatError reports boundary data that could not be parsed as the
// expected shapefile format.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("boundary data %s: %s", e.Path, e.Reason)
}

// ringArea returns the absolute shoelace area of a ring.
func ringArea(ring Ring) float64 {
	var sum float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		sum += p.X*q.Y - q.X*p.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// ringCentroid returns the area centroid of a ring, falling back to the
// vertex mean for degenerate rings.
func ringCentroid(ring Ring) Point {
	if len(ring) == 0 {
		return Point{}
	}
	var signed, cx, cy float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		cross := p.X*q.Y - q.X*p.Y
		signed += cross
		cx += (p.X + q.X) * cross
		cy += (p.Y + q.Y) * cross
	}
	if signed == 0 {
		var mx, my float64
		for _, p := range ring {
			mx += p.X
			my += p.Y
		}
		n := float64(len(ring))
		return Point{X: mx / n, Y: my / n}
	}
	return Point{X: cx / (3 * signed), Y: cy / (3 * signed)}
}
