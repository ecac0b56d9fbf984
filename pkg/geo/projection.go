package geo

import "math"

// Projection maps longitude/latitude onto a width x height canvas with an
// equirectangular projection. Longitudes are scaled by the cosine of the
// central latitude so shapes keep their proportions. The y axis grows
// downward.
type Projection struct {
	bounds  Bounds
	scale   float64
	lonCorr float64
	offX    float64
	offY    float64
	width   float64
	height  float64
}

// NewProjection fits b inside a width x height canvas with margin on every
// side, centered.
func NewProjection(b Bounds, width, height, margin float64) Projection {
	p := Projection{bounds: b, width: width, height: height, lonCorr: 1}
	if !b.Valid() {
		return p
	}
	p.lonCorr = math.Cos(b.Center().Lat * math.Pi / 180)
	if p.lonCorr < 0.1 {
		p.lonCorr = 0.1
	}

	spanX := (b.MaxLon - b.MinLon) * p.lonCorr
	spanY := b.MaxLat - b.MinLat
	availX := math.Max(width-2*margin, 1)
	availY := math.Max(height-2*margin, 1)

	switch {
	case spanX <= 0 && spanY <= 0:
		p.scale = 1
	case spanX <= 0:
		p.scale = availY / spanY
	case spanY <= 0:
		p.scale = availX / spanX
	default:
		p.scale = math.Min(availX/spanX, availY/spanY)
	}
	p.offX = (width - spanX*p.scale) / 2
	p.offY = (height - spanY*p.scale) / 2
	return p
}

// Project returns the canvas position of pt.
func (p Projection) Project(pt Point) (x, y float64) {
	x = p.offX + (pt.Lon-p.bounds.MinLon)*p.lonCorr*p.scale
	y = p.offY + (p.bounds.MaxLat-pt.Lat)*p.scale
	return x, y
}

// Unproject is the inverse of Project.
func (p Projection) Unproject(x, y float64) Point {
	if p.scale == 0 {
		return Point{}
	}
	return Point{
		Lon: p.bounds.MinLon + (x-p.offX)/(p.lonCorr*p.scale),
		Lat: p.bounds.MaxLat - (y-p.offY)/p.scale,
	}
}

// Size returns the canvas dimensions.
func (p Projection) Size() (width, height float64) {
	return p.width, p.height
}
