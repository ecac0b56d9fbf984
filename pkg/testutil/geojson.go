package testutil

import (
	"fmt"
	"strings"
)

// CountiesGeoJSON returns a FeatureCollection with one unit square per
// generated county, laid out on a row starting at longitude -90.
func CountiesGeoJSON(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"type":"FeatureCollection","features":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		x := -90 + float64(i)
		fmt.Fprintf(&sb,
			`{"type":"Feature","id":%q,"properties":{"NAME":%q},"geometry":{"type":"Polygon","coordinates":[[[%g,35],[%g,35],[%g,36],[%g,36],[%g,35]]]}}`,
			CountyCode(i), CountyName(i), x, x+1, x+1, x, x)
	}
	sb.WriteString(`]}`)
	return sb.String()
}
