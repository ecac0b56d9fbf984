package figure

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/agglo/pkg/model"
)

func TestNewMapFigureDefaults(t *testing.T) {
	f := NewMapFigure()
	if f.Colorscale != ScaleReds || f.Opacity != 0.5 || f.Zoom != 3 {
		t.Errorf("unexpected defaults: %+v", f)
	}
	if f.Center.Lat != 37.0902 || f.Center.Lon != -95.7129 {
		t.Errorf("unexpected center: %+v", f.Center)
	}
	if !f.Empty() {
		t.Error("new map should be empty")
	}
	if _, _, ok := f.Range(); ok {
		t.Error("empty map should have no range")
	}
}

func TestMapRangeAndColor(t *testing.T) {
	f := NewMapFigure()
	f.Regions = []Region{
		{Location: "01001", Value: 2},
		{Location: "01003", Value: 0.5},
		{Location: "01005", Value: 3.5},
	}
	lo, hi, ok := f.Range()
	if !ok || lo != 0.5 || hi != 3.5 {
		t.Errorf("Range() = %v, %v, %v", lo, hi, ok)
	}
	scale := f.Scale()
	if !scale.Valid() || scale.Lo != 0.5 || scale.Hi != 3.5 {
		t.Errorf("Scale() = %+v", scale)
	}
	if got := scale.Color(0.5); got != redsStops[0] {
		t.Errorf("min value should map to the lightest stop, got %v", got)
	}
	if got := scale.Color(3.5); got != redsStops[len(redsStops)-1] {
		t.Errorf("max value should map to the darkest stop, got %v", got)
	}
	if !reflect.DeepEqual(f.Locations(), []string{"01001", "01003", "01005"}) {
		t.Errorf("unexpected locations %v", f.Locations())
	}
}

func TestRampAtClamps(t *testing.T) {
	if RampAt(ScaleReds, -1) != redsStops[0] {
		t.Error("t < 0 should clamp to the first stop")
	}
	if RampAt(ScaleReds, 2) != redsStops[len(redsStops)-1] {
		t.Error("t > 1 should clamp to the last stop")
	}
	if RampAt("Unknown", 0) != redsStops[0] {
		t.Error("unknown scales should fall back to Reds")
	}
	mid := RampAt(ScaleReds, 0.0625)
	if mid == redsStops[0] || mid == redsStops[1] {
		t.Errorf("expected an interpolated color between the first stops, got %v", mid)
	}
}

func TestRGBHex(t *testing.T) {
	if got := (RGB{103, 0, 13}).Hex(); got != "#67000d" {
		t.Errorf("Hex() = %q", got)
	}
	if SeriesColor(len(SeriesPalette)) != SeriesPalette[0] {
		t.Error("series palette should wrap")
	}
}

func TestLineFigurePeriodsAndRange(t *testing.T) {
	f := &LineFigure{
		Title: "Location Quotients for Ada",
		Series: []Series{
			{Key: "300", Name: "LQ", Points: []Point{{X: "2019", Y: 1}, {X: "2020", Y: 4}}},
			{Key: "200", Name: "CLQ", Points: []Point{{X: "2018", Y: 0.5}, {X: "2020", Y: 2}}},
		},
	}
	want := []model.Period{"2018", "2019", "2020"}
	if got := f.Periods(); !reflect.DeepEqual(got, want) {
		t.Errorf("Periods() = %v, want %v", got, want)
	}
	lo, hi, ok := f.YRange()
	if !ok || lo != 0.5 || hi != 4 {
		t.Errorf("YRange() = %v, %v, %v", lo, hi, ok)
	}
	if f.Empty() {
		t.Error("figure with points should not be empty")
	}
	if f.FullTitle() != f.Title {
		t.Errorf("FullTitle without subtitle = %q", f.FullTitle())
	}
	f.Subtitle = "LQ: CLQ"
	if f.FullTitle() != "Location Quotients for Ada | LQ: CLQ" {
		t.Errorf("FullTitle = %q", f.FullTitle())
	}
}

func TestLineFigureEmpty(t *testing.T) {
	var nilFig *LineFigure
	if !nilFig.Empty() {
		t.Error("nil figure should be empty")
	}
	f := &LineFigure{Series: []Series{{Key: "300"}}}
	if !f.Empty() {
		t.Error("series without points should count as empty")
	}
}

func TestScaleIgnoresMissingValues(t *testing.T) {
	f := NewMapFigure()
	f.Regions = []Region{
		{Location: "01001", Value: math.NaN()},
		{Location: "01003", Value: 1},
		{Location: "01005", Value: 4},
	}
	lo, hi, ok := f.Range()
	if !ok || lo != 1 || hi != 4 {
		t.Errorf("Range() = %v, %v, %v; want 1, 4, true", lo, hi, ok)
	}
	scale := f.Scale()
	if got := scale.Color(math.NaN()); got != NoDataColor {
		t.Errorf("missing value should be unshaded, got %v", got)
	}
	if got := scale.Color(4); got != redsStops[len(redsStops)-1] {
		t.Errorf("max value should map to the darkest stop, got %v", got)
	}
}

func TestScaleAllMissing(t *testing.T) {
	f := NewMapFigure()
	f.Regions = []Region{{Location: "01001", Value: math.NaN()}}
	if _, _, ok := f.Range(); ok {
		t.Error("a map without values should have no range")
	}
	if f.Scale().Valid() {
		t.Error("scale should be invalid without values")
	}
	var nilMap *MapFigure
	if got := nilMap.Scale().Color(2); got != redsStops[len(redsStops)-1] {
		t.Errorf("nil map scale should use the darkest stop, got %v", got)
	}
}

func TestRegionJSONMissingValue(t *testing.T) {
	regions := []Region{
		{Location: "01001", Value: 1.5, Hover: "A"},
		{Location: "01003", Value: math.NaN(), Hover: "B"},
	}
	data, err := json.Marshal(regions)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"value":null`) {
		t.Errorf("missing value should encode as null: %s", data)
	}

	var back []Region
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(back) != 2 || back[0].Value != 1.5 || back[0].Hover != "A" {
		t.Errorf("unexpected decode %+v", back)
	}
	if !math.IsNaN(back[1].Value) || back[1].Location != "01003" {
		t.Errorf("null should decode as NaN, got %+v", back[1])
	}
}

func TestYRangeSkipsMissingPoints(t *testing.T) {
	f := &LineFigure{Series: []Series{{Points: []Point{
		{X: "2018", Y: math.NaN()},
		{X: "2019", Y: 2},
	}}}}
	lo, hi, ok := f.YRange()
	if !ok || lo != 2 || hi != 2 {
		t.Errorf("YRange() = %v, %v, %v", lo, hi, ok)
	}
}
