package view

import (
	"math"
	"sort"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/lookup"
	"github.com/vanderheijden86/agglo/pkg/metrics"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// Subset is an ordered selection of dataset rows, kept as positions into
// the dataset so it shares storage with it.
type Subset struct {
	rows []model.Row
	idx  []int
}

// Len returns the number of rows in the subset.
func (s Subset) Len() int {
	return len(s.idx)
}

// Row returns the i-th row of the subset.
func (s Subset) Row(i int) model.Row {
	return s.rows[s.idx[i]]
}

// Rows copies the subset rows out in order.
func (s Subset) Rows() []model.Row {
	out := make([]model.Row, len(s.idx))
	for i, j := range s.idx {
		out[i] = s.rows[j]
	}
	return out
}

// Values returns the subset values at the given positions. Positions
// outside the subset are skipped.
func (s Subset) Values(positions []int) []float64 {
	vals := make([]float64, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(s.idx) {
			continue
		}
		vals = append(vals, s.rows[s.idx[p]].Value)
	}
	return vals
}

// MapSubset returns the rows matching industry, metric and year exactly,
// in dataset order.
func MapSubset(rows []model.Row, industry, metric string, year model.Period) Subset {
	s := Subset{rows: rows}
	for i := range rows {
		r := &rows[i]
		if r.IndustryCode == industry && r.MetricCode == metric && r.Year == year {
			s.idx = append(s.idx, i)
		}
	}
	return s
}

// BuildMap builds the choropleth for one (industry, metric, year)
// combination. The returned subset is the index space for highlighted
// rows. Arguments are not validated; an impossible combination yields a
// map with no regions.
func BuildMap(rows []model.Row, industry, metric string, year model.Period) (*figure.MapFigure, Subset) {
	defer metrics.Timer(metrics.MapBuild)()

	subset := MapSubset(rows, industry, metric, year)
	fig := figure.NewMapFigure()
	fig.Regions = make([]figure.Region, 0, subset.Len())
	for i := 0; i < subset.Len(); i++ {
		r := subset.Row(i)
		if i == 0 {
			fig.ColorTitle = r.Metric
		}
		fig.Regions = append(fig.Regions, figure.Region{
			Location: r.GeoID,
			Value:    r.Value,
			Hover:    r.County,
		})
	}
	return fig, subset
}

// LineParams are the line builder arguments. Exactly one of IndustryCode
// and MetricCode is normally set; empty means "no filter".
type LineParams struct {
	ColorDimension model.ColorDimension
	GeoID          string
	IndustryCode   string
	MetricCode     string
}

// Line chart labels.
const (
	LineTitlePrefix   = "Location Quotients for "
	LineXLabel        = "Year"
	MetricLegendTitle = "Metric"
	MetricYLabel      = "Value"
	IndustryLegend    = "NAICS Code"
	IndustryYLabel    = "PA-LQ Data"
)

// BuildLine builds the time-series chart for one county.
//
// Colored by metric, the chart keeps only the LQ and CLQ rows and draws one
// line per metric. Colored by industry, it draws one line per industry code
// with the industry name as hover text. An empty subset yields a chart with
// titles and no series.
func BuildLine(rows []model.Row, tables *lookup.Tables, p LineParams) *figure.LineFigure {
	defer metrics.Timer(metrics.LineBuild)()

	fig := &figure.LineFigure{
		Title:  LineTitlePrefix + tables.Geo.NameOr(p.GeoID, p.GeoID),
		XLabel: LineXLabel,
		Series: []figure.Series{},
	}

	var groupKey func(*model.Row) (key, name, hover string)
	switch p.ColorDimension {
	case model.ColorByMetric:
		fig.Subtitle = "Industry: " + tables.Industry.NameOr(p.IndustryCode, p.IndustryCode)
		fig.LegendTitle = MetricLegendTitle
		fig.YLabel = MetricYLabel
		groupKey = func(r *model.Row) (string, string, string) {
			return r.MetricCode, r.Metric, r.MetricCode
		}
	default:
		fig.Subtitle = "LQ: " + tables.Metric.NameOr(p.MetricCode, p.MetricCode)
		fig.LegendTitle = IndustryLegend
		fig.YLabel = IndustryYLabel
		groupKey = func(r *model.Row) (string, string, string) {
			return r.IndustryCode, r.IndustryCode, r.Industry
		}
	}

	series := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		if r.GeoID != p.GeoID {
			continue
		}
		if p.IndustryCode != "" && r.IndustryCode != p.IndustryCode {
			continue
		}
		if p.MetricCode != "" && r.MetricCode != p.MetricCode {
			continue
		}
		if p.ColorDimension == model.ColorByMetric && !model.IsHeadlineMetric(r.MetricCode) {
			continue
		}
		if math.IsNaN(r.Value) {
			continue
		}

		key, name, hover := groupKey(r)
		si, ok := series[key]
		if !ok {
			si = len(fig.Series)
			series[key] = si
			fig.Series = append(fig.Series, figure.Series{Key: key, Name: name})
		}
		fig.Series[si].Points = append(fig.Series[si].Points, figure.Point{
			X:     r.Year,
			Y:     r.Value,
			Hover: hover,
		})
	}

	for i := range fig.Series {
		pts := fig.Series[i].Points
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].X.Less(pts[b].X) })
	}
	return fig
}
