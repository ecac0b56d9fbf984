package figure

import (
	"fmt"
	"math"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NoDataColor fills regions whose value is missing.
var NoDataColor = RGB{204, 204, 204}

// ColorScale maps values onto a named ramp between Lo and Hi.
type ColorScale struct {
	Name   string
	Lo, Hi float64
	ok     bool
}

// Valid reports whether the scale has a value range.
func (s ColorScale) Valid() bool {
	return s.ok
}

// Color returns the ramp color for v. A flat or empty range maps every
// value to the darkest stop; NaN maps to NoDataColor.
func (s ColorScale) Color(v float64) RGB {
	if math.IsNaN(v) {
		return NoDataColor
	}
	if !s.ok || s.Hi == s.Lo {
		return RampAt(s.Name, 1)
	}
	return RampAt(s.Name, (v-s.Lo)/(s.Hi-s.Lo))
}

// ColorBrewer Reds, the sequential ramp used for map shading.
var redsStops = []RGB{
	{255, 245, 240},
	{254, 224, 210},
	{252, 187, 161},
	{252, 146, 114},
	{251, 106, 74},
	{239, 59, 44},
	{203, 24, 29},
	{165, 15, 21},
	{103, 0, 13},
}

var colorScales = map[string][]RGB{
	ScaleReds: redsStops,
}

// SeriesPalette is the qualitative palette assigned to line series in order.
var SeriesPalette = []RGB{
	{0x63, 0x6e, 0xfa},
	{0xef, 0x55, 0x3b},
	{0x00, 0xcc, 0x96},
	{0xab, 0x63, 0xfa},
	{0xff, 0xa1, 0x5a},
	{0x19, 0xd3, 0xf3},
	{0xff, 0x66, 0x92},
	{0xb6, 0xe8, 0x80},
	{0xff, 0x97, 0xff},
	{0xfe, 0xcb, 0x52},
}

// SeriesColor returns the palette color for the i-th series.
func SeriesColor(i int) RGB {
	if i < 0 {
		i = -i
	}
	return SeriesPalette[i%len(SeriesPalette)]
}

// RampAt interpolates the named color scale at t in [0, 1]. Unknown scales
// fall back to Reds.
func RampAt(scale string, t float64) RGB {
	stops, ok := colorScales[scale]
	if !ok {
		stops = redsStops
	}
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	frac := pos - float64(i)
	a, b := stops[i], stops[i+1]
	return RGB{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
