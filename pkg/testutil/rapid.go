package testutil

import (
	"math"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// RowGen draws rows from a small vocabulary so that random filters
// regularly hit. Geo ids are sometimes drawn in their padded raw form.
func RowGen() *rapid.Generator[model.Row] {
	return rapid.Custom(func(t *rapid.T) model.Row {
		county := rapid.IntRange(0, 5).Draw(t, "county")
		geo := CountyCode(county)
		if geo[0] == '0' && rapid.Bool().Draw(t, "padded") {
			geo = geo[1:] + " "
		}
		sec := sectors[rapid.IntRange(0, 3).Draw(t, "industry")]
		metric := rapid.SampledFrom([][2]string{
			{model.MetricLQ, "LQ"},
			{model.MetricCLQ, "CLQ"},
			{"100", "Employment"},
			{"400", "Establishments"},
		}).Draw(t, "metric")
		prefix := rapid.SampledFrom([]string{"", " ", "- ", "*"}).Draw(t, "prefix")
		value := rapid.Float64Range(0, 10).Draw(t, "value")

		return model.Row{
			GeoID:        geo,
			County:       CountyName(county),
			IndustryCode: sec.code,
			Industry:     prefix + sec.name,
			MetricCode:   metric[0],
			Metric:       metric[1],
			Year:         model.Period(rapid.SampledFrom([]string{"2009", "2010", "2015", "2021"}).Draw(t, "year")),
			Value:        math.Round(value*1000) / 1000,
		}
	})
}

// RowsGen draws a non-empty row set.
func RowsGen() *rapid.Generator[[]model.Row] {
	return rapid.SliceOfN(RowGen(), 1, 60)
}
