// Package export writes dashboard figures to SVG, PNG, or JSON files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/geo"
	"github.com/vanderheijden86/agglo/pkg/metrics"
)

// Supported output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// Formats lists the supported formats.
var Formats = []string{FormatSVG, FormatPNG, FormatJSON}

// Default canvas sizes.
const (
	DefaultMapWidth   = 960
	DefaultMapHeight  = 600
	DefaultLineWidth  = 960
	DefaultLineHeight = 520
)

// ErrNoFigure is returned when FigureOptions carries no figure.
var ErrNoFigure = errors.New("no figure to export")

// FigureOptions controls figure export.
type FigureOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg", "png" or "json" (case-insensitive)

	// Exactly one of Map and Line is set.
	Map  *figure.MapFigure
	Line *figure.LineFigure

	// Boundaries shapes the map; without it the map is drawn as a ranked
	// bar list.
	Boundaries *geo.Collection
	// Selected are highlighted positions within Map.Regions.
	Selected []int

	Width, Height int
}

// ResolveFormat returns the output format for path and an explicit
// format, and the path with an extension appended when it had none.
func ResolveFormat(path, format string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = FormatSVG
		case ".png":
			format = FormatPNG
		case ".json":
			format = FormatJSON
		default:
			format = FormatSVG
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	switch format {
	case FormatSVG, FormatPNG, FormatJSON:
		return format, path, nil
	default:
		return "", path, fmt.Errorf("unsupported format %q (want svg, png or json)", format)
	}
}

// SaveFigure renders one figure to opts.Path.
func SaveFigure(opts FigureOptions) error {
	defer metrics.Timer(metrics.FigureExport)()

	if opts.Map == nil && opts.Line == nil {
		return ErrNoFigure
	}
	if opts.Map != nil && opts.Line != nil {
		return fmt.Errorf("one figure per file, got map and line")
	}

	format, path, err := ResolveFormat(opts.Path, opts.Format)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	opts.Path = path

	var buf bytes.Buffer
	if err := RenderFigure(&buf, format, opts); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.WriteFile(opts.Path, buf.Bytes(), 0o644)
}

// RenderFigure writes one figure in format to buf.
func RenderFigure(buf *bytes.Buffer, format string, opts FigureOptions) error {
	if format == FormatJSON {
		return encodeJSON(buf, opts)
	}

	var sc *scene
	switch {
	case opts.Map != nil:
		w, h := size(opts.Width, opts.Height, DefaultMapWidth, DefaultMapHeight)
		sc = buildMapScene(opts.Map, opts.Boundaries, opts.Selected, w, h)
	case opts.Line != nil:
		w, h := size(opts.Width, opts.Height, DefaultLineWidth, DefaultLineHeight)
		sc = buildLineScene(opts.Line, w, h)
	default:
		return ErrNoFigure
	}

	switch format {
	case FormatSVG:
		return renderSVGToWriter(buf, sc)
	case FormatPNG:
		return renderPNGToWriter(buf, sc)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

func size(w, h, defW, defH int) (int, int) {
	if w <= 0 {
		w = defW
	}
	if h <= 0 {
		h = defH
	}
	return w, h
}

type figureDocument struct {
	Kind     string             `json:"kind"`
	Map      *figure.MapFigure  `json:"map,omitempty"`
	Line     *figure.LineFigure `json:"line,omitempty"`
	Selected []int              `json:"selected,omitempty"`
}

func encodeJSON(buf *bytes.Buffer, opts FigureOptions) error {
	doc := figureDocument{Map: opts.Map, Line: opts.Line}
	if opts.Map != nil {
		doc.Kind = "map"
		doc.Selected = opts.Selected
	} else {
		doc.Kind = "line"
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding figure: %w", err)
	}
	buf.Write(data)
	buf.WriteByte('\n')
	return nil
}

// --- map ---------------------------------------------------------------------

const (
	pad          = 24.0
	headerHeight = 56.0
	colorBarW    = 18.0
	colorBarGap  = 90.0
)

func buildMapScene(fig *figure.MapFigure, shapes *geo.Collection, selected []int, width, height int) *scene {
	sc := newScene(width, height)
	title := fig.Title
	if title == "" {
		title = "Location Quotient Map"
	}
	sc.heading(pad, pad+12, title)

	if fig.Empty() {
		sc.text(float64(width)/2, float64(height)/2, "No data for this selection", 14, colorSubtle, anchorMiddle)
		return sc
	}

	plotX := pad
	plotY := pad + headerHeight
	plotW := float64(width) - 2*pad - colorBarGap
	plotH := float64(height) - plotY - pad

	isSelected := make(map[int]bool, len(selected))
	for _, i := range selected {
		isSelected[i] = true
	}

	if !drawShapes(sc, fig, shapes, isSelected, plotX, plotY, plotW, plotH) {
		drawRanking(sc, fig, isSelected, plotX, plotY, plotW, plotH)
	}
	drawColorBar(sc, fig, plotX+plotW+pad, plotY, plotH)
	return sc
}

// drawShapes draws every region that has a boundary. It reports false when
// no region could be matched to a shape.
func drawShapes(sc *scene, fig *figure.MapFigure, shapes *geo.Collection, selected map[int]bool, x, y, w, h float64) bool {
	if shapes.Len() == 0 {
		return false
	}
	bounds := shapes.Bounds(fig.Locations()...)
	if !bounds.Valid() {
		return false
	}
	proj := geo.NewProjection(bounds, w, h, 4)

	scale := fig.Scale()
	drawn := 0
	for i, r := range fig.Regions {
		f, ok := shapes.Feature(r.Location)
		if !ok {
			continue
		}
		fill, opacity := rgba(scale.Color(r.Value)), fig.Opacity
		if !figure.HasValue(r.Value) {
			opacity = 0
		}
		stroke, strokeW := colorBorder, 0.5
		if selected[i] {
			stroke, strokeW = colorHighlite, 2
		}
		for _, poly := range f.Polygons {
			if len(poly) == 0 {
				continue
			}
			xs := make([]float64, len(poly[0]))
			ys := make([]float64, len(poly[0]))
			for k, p := range poly[0] {
				px, py := proj.Project(p)
				xs[k], ys[k] = x+px, y+py
			}
			sc.add(shape{
				kind:        shapePolygon,
				xs:          xs,
				ys:          ys,
				fill:        fill,
				fillOpacity: opacity,
				stroke:      stroke,
				strokeWidth: strokeW,
				title:       regionTitle(r),
			})
		}
		drawn++
	}
	return drawn > 0
}

// drawRanking lists regions as horizontal bars, largest value first.
func drawRanking(sc *scene, fig *figure.MapFigure, selected map[int]bool, x, y, w, h float64) {
	const rowH = 18.0
	const labelW = 220.0

	order := make([]int, len(fig.Regions))
	for i := range order {
		order[i] = i
	}
	// Regions without a value sort last.
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := fig.Regions[order[a]].Value, fig.Regions[order[b]].Value
		if !figure.HasValue(vb) {
			return figure.HasValue(va)
		}
		return figure.HasValue(va) && va > vb
	})

	scale := fig.Scale()
	hi := scale.Hi
	if hi <= 0 {
		hi = 1
	}
	maxRows := int(h/rowH) - 1
	if maxRows < 1 {
		maxRows = 1
	}
	barMax := w - labelW - 60

	for n, i := range order {
		if n >= maxRows {
			sc.text(x, y+float64(n)*rowH+12, fmt.Sprintf("... %d more", len(order)-n), 11, colorSubtle, anchorStart)
			break
		}
		r := fig.Regions[i]
		rowY := y + float64(n)*rowH
		label := truncate(r.Hover, 32)
		if label == "" {
			label = r.Location
		}
		c := colorSubtle
		if selected[i] {
			c = colorHighlite
		}
		sc.text(x, rowY+12, label, 11, c, anchorStart)
		bw := 1.0
		if figure.HasValue(r.Value) {
			bw = math.Max(1, barMax*math.Max(r.Value, 0)/hi)
		}
		sc.add(shape{
			kind:        shapeRect,
			x:           x + labelW,
			y:           rowY + 2,
			w:           bw,
			h:           rowH - 4,
			fill:        rgba(scale.Color(r.Value)),
			fillOpacity: 1,
			title:       regionTitle(r),
		})
		sc.text(x+labelW+bw+6, rowY+12, formatRegionValue(r.Value), 11, colorSubtle, anchorStart)
	}
}

func drawColorBar(sc *scene, fig *figure.MapFigure, x, y, h float64) {
	lo, hi, ok := fig.Range()
	if !ok {
		return
	}
	const steps = 20
	barH := math.Min(h, 260)
	stepH := barH / steps
	top := y + 18
	for i := 0; i < steps; i++ {
		t := 1 - (float64(i)+0.5)/steps
		sc.rect(x, top+float64(i)*stepH, colorBarW, stepH+0.5, rgba(figure.RampAt(fig.Colorscale, t)))
	}
	sc.add(shape{kind: shapeRect, x: x, y: top, w: colorBarW, h: barH, fill: colorBackdrop, fillOpacity: 0, stroke: colorBorder, strokeWidth: 1})
	sc.text(x, y+8, truncate(fig.ColorTitle, 12), 12, colorText, anchorStart)
	sc.text(x+colorBarW+4, top+10, fmt.Sprintf("%.2f", hi), 11, colorSubtle, anchorStart)
	sc.text(x+colorBarW+4, top+barH, fmt.Sprintf("%.2f", lo), 11, colorSubtle, anchorStart)
}

func regionTitle(r figure.Region) string {
	return fmt.Sprintf("%s (%s): %s", r.Hover, r.Location, formatRegionValue(r.Value))
}

func formatRegionValue(v float64) string {
	if !figure.HasValue(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// --- line --------------------------------------------------------------------

const legendWidth = 170.0

func buildLineScene(fig *figure.LineFigure, width, height int) *scene {
	sc := newScene(width, height)
	sc.heading(pad, pad+12, fig.Title)
	if fig.Subtitle != "" {
		sc.text(pad, pad+34, fig.Subtitle, 13, colorSubtle, anchorStart)
	}

	left := pad + 56
	top := pad + headerHeight
	right := float64(width) - pad - legendWidth
	bottom := float64(height) - pad - 36

	if fig.Empty() {
		sc.text(float64(width)/2, float64(height)/2, "No data for this county", 14, colorSubtle, anchorMiddle)
		return sc
	}

	periods := fig.Periods()
	xOf := make(map[string]float64, len(periods))
	for i, p := range periods {
		if len(periods) == 1 {
			xOf[string(p)] = (left + right) / 2
			continue
		}
		xOf[string(p)] = left + (right-left)*float64(i)/float64(len(periods)-1)
	}

	lo, hi, _ := fig.YRange()
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	span := hi - lo
	lo -= span * 0.05
	hi += span * 0.05
	yOf := func(v float64) float64 {
		return bottom - (v-lo)/(hi-lo)*(bottom-top)
	}

	// grid and y ticks
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/ticks
		y := yOf(v)
		sc.line(left, y, right, y, colorGrid, 1)
		sc.text(left-6, y+4, fmt.Sprintf("%.2f", v), 11, colorSubtle, anchorEnd)
	}

	// x ticks, thinned so labels do not collide
	every := 1
	if maxLabels := int((right - left) / 40); maxLabels > 0 && len(periods) > maxLabels {
		every = (len(periods) + maxLabels - 1) / maxLabels
	}
	for i, p := range periods {
		if i%every != 0 {
			continue
		}
		x := xOf[string(p)]
		sc.line(x, bottom, x, bottom+4, colorStroke, 1)
		sc.text(x, bottom+18, string(p), 11, colorSubtle, anchorMiddle)
	}

	sc.line(left, top, left, bottom, colorStroke, 1)
	sc.line(left, bottom, right, bottom, colorStroke, 1)
	sc.text((left+right)/2, float64(height)-pad+4, fig.XLabel, 12, colorText, anchorMiddle)
	sc.text(pad, top-8, fig.YLabel, 12, colorText, anchorStart)

	for i, s := range fig.Series {
		c := rgba(figure.SeriesColor(i))
		xs := make([]float64, 0, len(s.Points))
		ys := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			xs = append(xs, xOf[string(p.X)])
			ys = append(ys, yOf(p.Y))
		}
		if len(xs) > 1 {
			sc.polyline(xs, ys, c, 2)
		}
		for k, p := range s.Points {
			sc.add(shape{
				kind:        shapeRect,
				x:           xs[k] - 3,
				y:           ys[k] - 3,
				w:           6,
				h:           6,
				fill:        c,
				fillOpacity: 1,
				title:       pointTitle(s, p),
			})
		}
	}

	drawLegend(sc, fig, right+pad, top)
	return sc
}

func drawLegend(sc *scene, fig *figure.LineFigure, x, y float64) {
	if fig.LegendTitle != "" {
		sc.text(x, y, fig.LegendTitle, 12, colorText, anchorStart)
	}
	for i, s := range fig.Series {
		rowY := y + 18 + float64(i)*18
		sc.rect(x, rowY-9, 12, 12, rgba(figure.SeriesColor(i)))
		sc.text(x+18, rowY+1, truncate(s.Name, 20), 11, colorSubtle, anchorStart)
	}
}

func pointTitle(s figure.Series, p figure.Point) string {
	if p.Hover != "" && p.Hover != s.Name {
		return fmt.Sprintf("%s %s: %.2f (%s)", s.Name, p.X, p.Y, p.Hover)
	}
	return fmt.Sprintf("%s %s: %.2f", s.Name, p.X, p.Y)
}
