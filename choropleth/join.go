// Package choropleth joins state boundary geometries with user data and
// renders the result as a colored map.
package choropleth

import (
	"github.com/c360studio/statemap/dataset"
	"github.com/c360studio/statemap/shapefile"
)

// JoinedState pairs one state geometry with its joined value.
type JoinedState struct {
	Geometry shapefile.StateGeometry
	// Value holds the joined numeric value when Missing is false.
	Value float64
	// Missing is true when no data row matched this state, or the
	// matching row had an empty value cell.
	Missing bool
}

// Range is the closed numeric interval observed across joined values.
type Range struct {
	Min, Max float64
}

// EmptyDataError reports a join that produced no usable numeric values.
type EmptyDataError struct{}

func (e *EmptyDataError) Error() string {
	return "no usable numeric values after joining data to state boundaries"
}

// Join left-joins geometries against value records by exact state name.
// Every geometry appears exactly once in the output, in input order;
// geometries without a matching record carry the missing marker. Records
// that match no geometry are ignored (see Unmatched). The returned Range
// spans all non-missing values; if there are none, Join fails with an
// EmptyDataError.
func Join(geoms []shapefile.StateGeometry, records []dataset.ValueRecord) ([]JoinedState, Range, error) {
	byState := make(map[string]dataset.ValueRecord, len(records))
	for _, rec := range records {
		byState[rec.State] = rec
	}

	joined := make([]JoinedState, 0, len(geoms))
	var rng Range
	seen := false
	for _, g := range geoms {
		js := JoinedState{Geometry: g, Missing: true}
		if rec, ok := byState[g.Name]; ok && !rec.Missing {
			js.Value = rec.Value
			js.Missing = false
			if !seen {
				rng = Range{Min: rec.Value, Max: rec.Value}
				seen = true
			} else {
				if rec.Value < rng.Min {
					rng.Min = rec.Value
				}
				if rec.Value > rng.Max {
					rng.Max = rec.Value
				}
			}
		}
		joined = append(joined, js)
	}

	if !seen {
		return nil, Range{}, &EmptyDataError{}
	}
	return joined, rng, nil
}

// Unmatched returns the state names of records that match no geometry, in
// record order without duplicates. Callers report these to the user; they
// are never fatal.
func Unmatched(geoms []shapefile.StateGeometry, records []dataset.ValueRecord) []string {
	known := make(map[string]struct{}, len(geoms))
	for _, g := range geoms {
		known[g.Name] = struct{}{}
	}

	var names []string
	reported := make(map[string]struct{})
	for _, rec := range records {
		if _, ok := known[rec.State]; ok {
			continue
		}
		if _, dup := reported[rec.State]; dup {
			continue
		}
		reported[rec.State] = struct{}{}
		names = append(names, rec.State)
	}
	return names
}
