package export

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/agglo/pkg/figure"
)

type shapeKind int

const (
	shapeRect shapeKind = iota
	shapePolygon
	shapePolyline
	shapeText
)

type textAnchor int

const (
	anchorStart textAnchor = iota
	anchorMiddle
	anchorEnd
)

// shape is one drawing primitive shared by the SVG and PNG backends.
type shape struct {
	kind shapeKind

	x, y, w, h float64
	xs, ys     []float64

	fill        color.RGBA
	fillOpacity float64
	stroke      color.RGBA
	strokeWidth float64

	text   string
	size   float64
	bold   bool
	anchor textAnchor

	// title becomes an SVG <title> child, shown as a tooltip.
	title string
}

// scene is a flat, ordered display list.
type scene struct {
	width, height int
	shapes        []shape
}

func newScene(width, height int) *scene {
	sc := &scene{width: width, height: height}
	sc.rect(0, 0, float64(width), float64(height), colorBackdrop)
	return sc
}

func (sc *scene) add(s shape) {
	sc.shapes = append(sc.shapes, s)
}

func (sc *scene) rect(x, y, w, h float64, fill color.RGBA) {
	sc.add(shape{kind: shapeRect, x: x, y: y, w: w, h: h, fill: fill, fillOpacity: 1})
}

func (sc *scene) outlinedRect(x, y, w, h float64, fill, stroke color.RGBA) {
	sc.add(shape{kind: shapeRect, x: x, y: y, w: w, h: h, fill: fill, fillOpacity: 1, stroke: stroke, strokeWidth: 1})
}

func (sc *scene) line(x1, y1, x2, y2 float64, stroke color.RGBA, width float64) {
	sc.polyline([]float64{x1, x2}, []float64{y1, y2}, stroke, width)
}

func (sc *scene) polyline(xs, ys []float64, stroke color.RGBA, width float64) {
	sc.add(shape{kind: shapePolyline, xs: xs, ys: ys, stroke: stroke, strokeWidth: width})
}

func (sc *scene) text(x, y float64, s string, size float64, c color.RGBA, anchor textAnchor) {
	sc.add(shape{kind: shapeText, x: x, y: y, text: s, size: size, fill: c, anchor: anchor})
}

func (sc *scene) heading(x, y float64, s string) {
	sc.add(shape{kind: shapeText, x: x, y: y, text: s, size: 16, fill: colorText, bold: true})
}

var (
	colorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorStroke   = color.RGBA{0x44, 0x44, 0x44, 0xff}
	colorBorder   = color.RGBA{0xbb, 0xbb, 0xbb, 0xff}
	colorGrid     = color.RGBA{0xe5, 0xe5, 0xe5, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorHighlite = color.RGBA{0x1f, 0x1f, 0x1f, 0xff}
)

func rgba(c figure.RGB) color.RGBA {
	return color.RGBA{c.R, c.G, c.B, 0xff}
}

func renderSVGToWriter(w io.Writer, sc *scene) error {
	canvas := svg.New(w)
	canvas.Start(sc.width, sc.height)
	for _, s := range sc.shapes {
		if s.title != "" {
			canvas.Group()
			canvas.Title(s.title)
		}
		switch s.kind {
		case shapeRect:
			canvas.Rect(int(s.x), int(s.y), int(s.w), int(s.h), fillStyle(s))
		case shapePolygon:
			canvas.Polygon(ints(s.xs), ints(s.ys), fillStyle(s))
		case shapePolyline:
			canvas.Polyline(ints(s.xs), ints(s.ys),
				fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g", css(s.stroke), s.strokeWidth))
		case shapeText:
			canvas.Text(int(s.x), int(s.y), s.text, textStyle(s))
		}
		if s.title != "" {
			canvas.Gend()
		}
	}
	canvas.End()
	return nil
}

func fillStyle(s shape) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fill:%s", css(s.fill))
	if s.fillOpacity < 1 {
		fmt.Fprintf(&sb, ";fill-opacity:%g", s.fillOpacity)
	}
	if s.strokeWidth > 0 {
		fmt.Fprintf(&sb, ";stroke:%s;stroke-width:%g", css(s.stroke), s.strokeWidth)
	}
	return sb.String()
}

func textStyle(s shape) string {
	style := fmt.Sprintf("fill:%s;font-size:%gpx;font-family:sans-serif", css(s.fill), s.size)
	switch s.anchor {
	case anchorMiddle:
		style += ";text-anchor:middle"
	case anchorEnd:
		style += ";text-anchor:end"
	}
	if s.bold {
		style += ";font-weight:bold"
	}
	return style
}

func renderPNGToWriter(w io.Writer, sc *scene) error {
	dc := gg.NewContext(sc.width, sc.height)
	dc.SetFontFace(basicfont.Face7x13)

	for _, s := range sc.shapes {
		switch s.kind {
		case shapeRect:
			dc.DrawRectangle(s.x, s.y, s.w, s.h)
			fillAndStroke(dc, s)
		case shapePolygon:
			if len(s.xs) < 3 {
				continue
			}
			dc.NewSubPath()
			dc.MoveTo(s.xs[0], s.ys[0])
			for i := 1; i < len(s.xs); i++ {
				dc.LineTo(s.xs[i], s.ys[i])
			}
			dc.ClosePath()
			fillAndStroke(dc, s)
		case shapePolyline:
			if len(s.xs) < 2 {
				continue
			}
			dc.MoveTo(s.xs[0], s.ys[0])
			for i := 1; i < len(s.xs); i++ {
				dc.LineTo(s.xs[i], s.ys[i])
			}
			dc.SetColor(s.stroke)
			dc.SetLineWidth(s.strokeWidth)
			dc.Stroke()
		case shapeText:
			ax := 0.0
			switch s.anchor {
			case anchorMiddle:
				ax = 0.5
			case anchorEnd:
				ax = 1
			}
			dc.SetColor(s.fill)
			dc.DrawStringAnchored(s.text, s.x, s.y, ax, 0)
		}
	}
	return dc.EncodePNG(w)
}

func fillAndStroke(dc *gg.Context, s shape) {
	dc.SetRGBA(
		float64(s.fill.R)/255,
		float64(s.fill.G)/255,
		float64(s.fill.B)/255,
		s.fillOpacity,
	)
	if s.strokeWidth > 0 {
		dc.FillPreserve()
		dc.SetColor(s.stroke)
		dc.SetLineWidth(s.strokeWidth)
		dc.Stroke()
		return
	}
	dc.Fill()
}

func ints(fs []float64) []int {
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f + 0.5)
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
