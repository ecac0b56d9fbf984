// Package geo loads county boundary shapes from GeoJSON and projects them
// onto a plane for rendering.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrNoFeatures is returned when a document holds no usable features.
var ErrNoFeatures = errors.New("geojson has no polygon features")

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lon, Lat float64
}

// Ring is a closed sequence of points. The first ring of a polygon is its
// outer boundary; the rest are holes.
type Ring []Point

// Polygon is an outer ring followed by zero or more holes.
type Polygon []Ring

// Feature is one boundary shape keyed by its id.
type Feature struct {
	ID       string
	Name     string
	Polygons []Polygon
}

// Bounds is a longitude/latitude bounding box.
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

func emptyBounds() Bounds {
	return Bounds{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// Valid reports whether b encloses at least one point.
func (b Bounds) Valid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat
}

func (b *Bounds) extend(p Point) {
	b.MinLon = math.Min(b.MinLon, p.Lon)
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MaxLon = math.Max(b.MaxLon, p.Lon)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
}

func (b *Bounds) union(o Bounds) {
	if !o.Valid() {
		return
	}
	b.extend(Point{o.MinLon, o.MinLat})
	b.extend(Point{o.MaxLon, o.MaxLat})
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{Lon: (b.MinLon + b.MaxLon) / 2, Lat: (b.MinLat + b.MaxLat) / 2}
}

// Bounds returns the bounding box of every outer ring of f.
func (f *Feature) Bounds() Bounds {
	b := emptyBounds()
	for _, poly := range f.Polygons {
		if len(poly) == 0 {
			continue
		}
		for _, p := range poly[0] {
			b.extend(p)
		}
	}
	return b
}

// Centroid returns the area-weighted centroid of the outer rings. Rings
// with no area fall back to the vertex mean.
func (f *Feature) Centroid() Point {
	var cx, cy, area float64
	var sx, sy float64
	n := 0
	for _, poly := range f.Polygons {
		if len(poly) == 0 {
			continue
		}
		ring := poly[0]
		a, x, y := ringCentroid(ring)
		cx += x * a
		cy += y * a
		area += a
		for _, p := range ring {
			sx += p.Lon
			sy += p.Lat
			n++
		}
	}
	if math.Abs(area) > 1e-12 {
		return Point{Lon: cx / area, Lat: cy / area}
	}
	if n == 0 {
		return Point{}
	}
	return Point{Lon: sx / float64(n), Lat: sy / float64(n)}
}

// ringCentroid returns the signed shoelace area of r and its centroid.
func ringCentroid(r Ring) (area, x, y float64) {
	if len(r) < 3 {
		return 0, 0, 0
	}
	for i := range r {
		p, q := r[i], r[(i+1)%len(r)]
		cross := p.Lon*q.Lat - q.Lon*p.Lat
		area += cross
		x += (p.Lon + q.Lon) * cross
		y += (p.Lat + q.Lat) * cross
	}
	area /= 2
	if area == 0 {
		return 0, 0, 0
	}
	return area, x / (6 * area), y / (6 * area)
}

// Contains reports whether p lies inside f, honoring holes.
func (f *Feature) Contains(p Point) bool {
	for _, poly := range f.Polygons {
		if len(poly) == 0 || !ringContains(poly[0], p) {
			continue
		}
		inHole := false
		for _, hole := range poly[1:] {
			if ringContains(hole, p) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// ringContains is the even-odd ray casting test.
func ringContains(r Ring, p Point) bool {
	in := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) &&
			p.Lon < (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat)+a.Lon {
			in = !in
		}
	}
	return in
}

// Collection is a set of features indexed by id.
type Collection struct {
	features []Feature
	byID     map[string]int
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.features)
}

// Feature returns the feature with the given id.
func (c *Collection) Feature(id string) (*Feature, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.features[i], true
}

// IDs returns every feature id, sorted.
func (c *Collection) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Bounds returns the bounding box of the features with the given ids, or
// of every feature when ids is empty. Unknown ids are ignored.
func (c *Collection) Bounds(ids ...string) Bounds {
	b := emptyBounds()
	if c == nil {
		return b
	}
	if len(ids) == 0 {
		for i := range c.features {
			b.union(c.features[i].Bounds())
		}
		return b
	}
	for _, id := range ids {
		if f, ok := c.Feature(id); ok {
			b.union(f.Bounds())
		}
	}
	return b
}

// Centroids returns the centroid of each known id.
func (c *Collection) Centroids(ids []string) map[string]Point {
	out := make(map[string]Point, len(ids))
	for _, id := range ids {
		if f, ok := c.Feature(id); ok {
			out[id] = f.Centroid()
		}
	}
	return out
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

type rawFeature struct {
	ID         json.RawMessage `json:"id"`
	Properties map[string]any  `json:"properties"`
	Geometry   *rawGeometry    `json:"geometry"`
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Parse decodes a GeoJSON FeatureCollection. Features without an id or
// without Polygon/MultiPolygon geometry are skipped; a later feature with
// a duplicate id is ignored.
func Parse(data []byte) (*Collection, error) {
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding geojson: %w", err)
	}
	if raw.Type != "" && raw.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", raw.Type)
	}

	c := &Collection{byID: make(map[string]int, len(raw.Features))}
	for i, rf := range raw.Features {
		id := featureID(rf)
		if id == "" || rf.Geometry == nil {
			continue
		}
		if _, dup := c.byID[id]; dup {
			continue
		}
		polys, err := decodeGeometry(rf.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d (%s): %w", i, id, err)
		}
		if len(polys) == 0 {
			continue
		}
		name, _ := rf.Properties["NAME"].(string)
		c.byID[id] = len(c.features)
		c.features = append(c.features, Feature{ID: id, Name: name, Polygons: polys})
	}
	if len(c.features) == 0 {
		return nil, ErrNoFeatures
	}
	return c, nil
}

// featureID reads the id member, which may be a string or a number, and
// falls back to properties.GEO_ID's trailing FIPS code.
func featureID(rf rawFeature) string {
	if len(rf.ID) > 0 && string(rf.ID) != "null" {
		var s string
		if err := json.Unmarshal(rf.ID, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var n float64
		if err := json.Unmarshal(rf.ID, &n); err == nil {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	if g, ok := rf.Properties["GEO_ID"].(string); ok {
		if i := strings.LastIndex(g, "US"); i >= 0 {
			return g[i+2:]
		}
	}
	return ""
}

func decodeGeometry(g *rawGeometry) ([]Polygon, error) {
	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		return []Polygon{toPolygon(coords)}, nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		polys := make([]Polygon, 0, len(coords))
		for _, pc := range coords {
			polys = append(polys, toPolygon(pc))
		}
		return polys, nil
	default:
		return nil, nil
	}
}

func toPolygon(coords [][][]float64) Polygon {
	poly := make(Polygon, 0, len(coords))
	for _, rc := range coords {
		ring := make(Ring, 0, len(rc))
		for _, pt := range rc {
			if len(pt) < 2 {
				continue
			}
			ring = append(ring, Point{Lon: pt[0], Lat: pt[1]})
		}
		poly = append(poly, ring)
	}
	return poly
}
