package shapefile

import (
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/c360studio/statemap/dataset"
)

// Attribute names carried by the boundary shapefile.
const (
	nameField         = "NAME"
	abbreviationField = "STUSPS"
)

// ReadStates parses state geometries from a polygon shapefile. The file
// must carry NAME and STUSPS attributes; records missing a name are
// skipped, record order is preserved.
func ReadStates(path string) ([]StateGeometry, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("open shapefile: %v", err)}
	}
	defer r.Close()

	nameIdx, abbrIdx := -1, -1
	for i, f := range r.Fields() {
		switch strings.ToUpper(f.String()) {
		case nameField:
			nameIdx = i
		case abbreviationField:
			abbrIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("missing %s attribute", nameField)}
	}
	if abbrIdx < 0 {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("missing %s attribute", abbreviationField)}
	}

	var states []StateGeometry
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, &FormatError{Path: path, Reason: fmt.Sprintf("record %d is not a polygon", n)}
		}

		name := cleanAttribute(r.ReadAttribute(n, nameIdx))
		if name == "" {
			continue
		}
		abbr := cleanAttribute(r.ReadAttribute(n, abbrIdx))
		if abbr == "" {
			abbr = dataset.Abbreviation(name)
		}
		states = append(states, StateGeometry{
			Name:         name,
			Abbreviation: abbr,
			Rings:        polygonRings(poly),
		})
	}
	if err := r.Err(); err != nil {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("read shapefile: %v", err)}
	}
	if len(states) == 0 {
		return nil, &FormatError{Path: path, Reason: "no state records"}
	}

	return states, nil
}

// polygonRings splits a shapefile polygon into its parts.
func polygonRings(poly *shp.Polygon) []Ring {
	rings := make([]Ring, 0, len(poly.Parts))
	for i, start := range poly.Parts {
		end := int32(len(poly.Points))
		if i+1 < len(poly.Parts) {
			end = poly.Parts[i+1]
		}
		ring := make(Ring, 0, end-start)
		for _, p := range poly.Points[start:end] {
			ring = append(ring, Point{X: p.X, Y: p.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// cleanAttribute strips DBF padding from an attribute value.
func cleanAttribute(v string) string {
	return strings.TrimSpace(strings.Trim(v, "\x00"))
}
