// Package view turns dashboard selections into chart figures.
//
// A Session owns the selection State and routes every change through a
// Reactor, which consults a static trigger table to decide which derived
// outputs (map, line chart, selection mean) to rebuild.
package view

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// Field identifies one selection field of State.
type Field int

const (
	FieldYear Field = iota
	FieldIndustry
	FieldMetric
	FieldColorDimension
	FieldGeoID
	FieldSelectedIndices

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldYear:            "selected_year",
	FieldIndustry:        "selected_industry_code",
	FieldMetric:          "selected_metric_code",
	FieldColorDimension:  "selected_color_dimension",
	FieldGeoID:           "selected_geoid",
	FieldSelectedIndices: "selected_indices",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Fields returns every selection field.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// Recompute is the set of derived outputs rebuilt for one change.
type Recompute uint8

const (
	RecomputeMap Recompute = 1 << iota
	RecomputeLine
	RecomputeMean
	// SelectionCleared marks that highlighted rows were dropped because the
	// map subset changed under them.
	SelectionCleared
)

// Has reports whether every bit of x is set.
func (r Recompute) Has(x Recompute) bool {
	return r&x == x
}

func (r Recompute) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, p := range []struct {
		bit  Recompute
		name string
	}{
		{RecomputeMap, "map"},
		{RecomputeLine, "line"},
		{RecomputeMean, "mean"},
		{SelectionCleared, "selection-cleared"},
	} {
		if r.Has(p.bit) {
			parts = append(parts, p.name)
		}
	}
	return strings.Join(parts, "+")
}

// SelectionPolicy decides what happens to highlighted rows when the map
// subset changes.
type SelectionPolicy string

const (
	// PolicyClear empties the selection whenever year, industry, or metric
	// changes, so positions never outlive the subset they index.
	PolicyClear SelectionPolicy = "clear"
	// PolicyPreserve keeps the positions; they are reinterpreted against the
	// new subset.
	PolicyPreserve SelectionPolicy = "preserve"
)

// ParsePolicy parses a policy name. Empty means PolicyClear.
func ParsePolicy(s string) (SelectionPolicy, error) {
	switch SelectionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyClear:
		return PolicyClear, nil
	case PolicyPreserve:
		return PolicyPreserve, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q (want clear or preserve)", s)
	}
}

// State is the selection of one dashboard session together with the
// outputs derived from it.
type State struct {
	Year           model.Period
	IndustryCode   string
	MetricCode     string
	ColorDimension model.ColorDimension
	GeoID          string
	// SelectedIndices are positions within MapSubset.
	SelectedIndices []int

	MapFigure  *figure.MapFigure
	LineFigure *figure.LineFigure
	// MapSubset is the row subset behind MapFigure.
	MapSubset Subset
	MeanValue float64
}

// IsSelected reports whether position i is highlighted.
func (s *State) IsSelected(i int) bool {
	for _, j := range s.SelectedIndices {
		if j == i {
			return true
		}
	}
	return false
}

// LineParams returns the line builder arguments implied by the current
// color dimension: coloring by industry passes the metric, coloring by
// metric passes the industry.
func (s *State) LineParams() LineParams {
	p := LineParams{
		ColorDimension: s.ColorDimension,
		GeoID:          s.GeoID,
	}
	switch s.ColorDimension {
	case model.ColorByIndustry:
		p.MetricCode = s.MetricCode
	case model.ColorByMetric:
		p.IndustryCode = s.IndustryCode
	}
	return p
}
