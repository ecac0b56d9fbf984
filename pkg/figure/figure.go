// Package figure holds renderer-independent chart descriptions: a
// choropleth keyed by county code and a multi-series line chart over
// periods. The dashboard, the exporters, and the JSON output all consume
// these values.
package figure

import (
	"math"
	"sort"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// Map defaults.
const (
	ScaleReds       = "Reds"
	DefaultOpacity  = 0.5
	DefaultZoom     = 3
	DefaultMapStyle = "carto-positron"
)

// DefaultCenter is the geographic center of the contiguous United States.
var DefaultCenter = GeoPoint{Lat: 37.0902, Lon: -95.7129}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Region is one shaded county.
type Region struct {
	Location string  `json:"location"`
	Value    float64 `json:"value"`
	Hover    string  `json:"hover"`
}

// MapFigure is a choropleth keyed by county code.
type MapFigure struct {
	Title      string   `json:"title,omitempty"`
	ColorTitle string   `json:"color_title,omitempty"`
	Colorscale string   `json:"colorscale"`
	Opacity    float64  `json:"opacity"`
	Center     GeoPoint `json:"center"`
	Zoom       float64  `json:"zoom"`
	Style      string   `json:"style"`
	Regions    []Region `json:"regions"`
}

// NewMapFigure returns an empty map with the default layout.
func NewMapFigure() *MapFigure {
	return &MapFigure{
		Colorscale: ScaleReds,
		Opacity:    DefaultOpacity,
		Center:     DefaultCenter,
		Zoom:       DefaultZoom,
		Style:      DefaultMapStyle,
		Regions:    []Region{},
	}
}

// Empty reports whether the map shades no region.
func (f *MapFigure) Empty() bool {
	return f == nil || len(f.Regions) == 0
}

// Locations returns the region keys in order.
func (f *MapFigure) Locations() []string {
	out := make([]string, len(f.Regions))
	for i, r := range f.Regions {
		out[i] = r.Location
	}
	return out
}

// Values returns the region values in order, NaN included.
func (f *MapFigure) Values() []float64 {
	out := make([]float64, len(f.Regions))
	for i, r := range f.Regions {
		out[i] = r.Value
	}
	return out
}

// Range returns the smallest and largest region value, ignoring regions
// without data.
func (f *MapFigure) Range() (lo, hi float64, ok bool) {
	if f.Empty() {
		return 0, 0, false
	}
	vals := make([]float64, 0, len(f.Regions))
	for _, r := range f.Regions {
		if HasValue(r.Value) {
			vals = append(vals, r.Value)
		}
	}
	if len(vals) == 0 {
		return 0, 0, false
	}
	return floats.Min(vals), floats.Max(vals), true
}

// Scale returns the figure's color scale. Renderers build it once and use
// it for every region.
func (f *MapFigure) Scale() ColorScale {
	if f == nil {
		return ColorScale{Name: ScaleReds}
	}
	s := ColorScale{Name: f.Colorscale}
	s.Lo, s.Hi, s.ok = f.Range()
	return s
}

// HasValue reports whether v is a value rather than a missing one (NaN).
func HasValue(v float64) bool {
	return !math.IsNaN(v)
}

// MarshalJSON writes a missing value as null.
func (r Region) MarshalJSON() ([]byte, error) {
	type plain Region
	if HasValue(r.Value) {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		Location string   `json:"location"`
		Value    *float64 `json:"value"`
		Hover    string   `json:"hover"`
	}{Location: r.Location, Hover: r.Hover})
}

// UnmarshalJSON reads a null value back as NaN.
func (r *Region) UnmarshalJSON(data []byte) error {
	var raw struct {
		Location string   `json:"location"`
		Value    *float64 `json:"value"`
		Hover    string   `json:"hover"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Location, r.Hover = raw.Location, raw.Hover
	r.Value = math.NaN()
	if raw.Value != nil {
		r.Value = *raw.Value
	}
	return nil
}

// Point is one line-chart sample.
type Point struct {
	X     model.Period `json:"x"`
	Y     float64      `json:"y"`
	Hover string       `json:"hover,omitempty"`
}

// Series is one line.
type Series struct {
	// Key is the code the series is grouped by (metric or industry code).
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// LineFigure is a multi-series chart of values over periods.
type LineFigure struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	LegendTitle string   `json:"legend_title,omitempty"`
	XLabel      string   `json:"x_label"`
	YLabel      string   `json:"y_label"`
	Series      []Series `json:"series"`
}

// Empty reports whether the chart has no points.
func (f *LineFigure) Empty() bool {
	if f == nil {
		return true
	}
	for _, s := range f.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// Periods returns the distinct x values across all series, in order.
func (f *LineFigure) Periods() []model.Period {
	seen := make(map[model.Period]bool)
	var out []model.Period
	for _, s := range f.Series {
		for _, p := range s.Points {
			if !seen[p.X] {
				seen[p.X] = true
				out = append(out, p.X)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// YRange returns the smallest and largest y value across all series.
func (f *LineFigure) YRange() (lo, hi float64, ok bool) {
	var ys []float64
	for _, s := range f.Series {
		for _, p := range s.Points {
			if HasValue(p.Y) {
				ys = append(ys, p.Y)
			}
		}
	}
	if len(ys) == 0 {
		return 0, 0, false
	}
	return floats.Min(ys), floats.Max(ys), true
}

// FullTitle joins title and subtitle the way single-line renderers show them.
func (f *LineFigure) FullTitle() string {
	if f.Subtitle == "" {
		return f.Title
	}
	return f.Title + " | " + f.Subtitle
}
