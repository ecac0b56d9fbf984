package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/geo"
)

// Glyphs used by the map raster.
const (
	glyphRegion   = "█"
	glyphSelected = "◆"
	glyphCursor   = "◎"
	glyphEmpty    = " "
)

// mapRaster places every shaded region at its projected centroid on a
// character grid. Cells hold the index of the region drawn there; later
// regions win collisions, except that selected and cursor regions are
// never overdrawn by plain ones.
type mapRaster struct {
	width  int
	height int
	cells  []int
}

// buildMapRaster projects the figure's regions onto a width x height grid.
// Terminal cells are about twice as tall as they are wide, so the
// projection runs on a doubled vertical resolution and halves it.
// It returns nil when no region has a boundary.
func buildMapRaster(fig *figure.MapFigure, boundaries *geo.Collection, priority func(i int) int, width, height int) *mapRaster {
	if fig.Empty() || boundaries.Len() == 0 || width < 4 || height < 2 {
		return nil
	}
	locs := fig.Locations()
	centroids := boundaries.Centroids(locs)
	if len(centroids) == 0 {
		return nil
	}

	bounds := boundaries.Bounds(locs...)
	proj := geo.NewProjection(bounds, float64(width), float64(height*2), 1)

	r := &mapRaster{width: width, height: height, cells: make([]int, width*height)}
	for i := range r.cells {
		r.cells[i] = -1
	}
	for i, loc := range locs {
		c, ok := centroids[loc]
		if !ok {
			continue
		}
		x, y := proj.Project(c)
		col := clamp(int(math.Floor(x)), 0, width-1)
		row := clamp(int(math.Floor(y/2)), 0, height-1)
		cell := row*width + col
		if prev := r.cells[cell]; prev >= 0 && priority(prev) > priority(i) {
			continue
		}
		r.cells[cell] = i
	}
	return r
}

// At returns the region index at a cell, or -1.
func (r *mapRaster) At(col, row int) int {
	if r == nil || col < 0 || row < 0 || col >= r.width || row >= r.height {
		return -1
	}
	return r.cells[row*r.width+col]
}

// Count returns how many regions are visible.
func (r *mapRaster) Count() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.cells {
		if c >= 0 {
			n++
		}
	}
	return n
}

// renderMapRaster draws the grid with each region shaded by its value.
func renderMapRaster(fig *figure.MapFigure, boundaries *geo.Collection, isSelected func(int) bool, cursor, width, height int) string {
	priority := func(i int) int {
		switch {
		case i == cursor:
			return 2
		case isSelected(i):
			return 1
		}
		return 0
	}
	r := buildMapRaster(fig, boundaries, priority, width, height)
	if r == nil {
		return ""
	}

	scale := fig.Scale()
	var sb strings.Builder
	for row := 0; row < r.height; row++ {
		for col := 0; col < r.width; col++ {
			i := r.At(col, row)
			if i < 0 {
				sb.WriteString(glyphEmpty)
				continue
			}
			glyph := glyphRegion
			switch {
			case i == cursor:
				glyph = glyphCursor
			case isSelected(i):
				glyph = glyphSelected
			}
			color := RampColor(scale.Color(fig.Regions[i].Value))
			sb.WriteString(lipgloss.NewStyle().Foreground(color).Render(glyph))
		}
		if row < r.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// renderColorBar draws the value range as a one-line ramp.
func renderColorBar(fig *figure.MapFigure, width int) string {
	lo, hi, ok := fig.Range()
	if !ok {
		return ""
	}
	left := formatValue(lo)
	right := formatValue(hi)
	title := fig.ColorTitle
	if title != "" {
		title += " "
	}
	steps := width - len(title) - len(left) - len(right) - 2
	if steps < 3 {
		return title + left + ".." + right
	}
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString(left)
	sb.WriteByte(' ')
	for s := 0; s < steps; s++ {
		t := float64(s) / float64(steps-1)
		sb.WriteString(lipgloss.NewStyle().Foreground(RampColor(figure.RampAt(fig.Colorscale, t))).Render("▀"))
	}
	sb.WriteByte(' ')
	sb.WriteString(right)
	return sb.String()
}

// renderRegionList lists the map regions in subset order so list position
// equals map position. The cursor row is kept visible.
func renderRegionList(fig *figure.MapFigure, isSelected func(int) bool, cursor, width, height int, theme Theme) string {
	if fig.Empty() {
		return theme.MutedText.Render("No data for this selection")
	}
	if height < 1 {
		height = 1
	}

	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(fig.Regions))

	valueW := 8
	nameW := width - valueW - 4
	if nameW < 4 {
		nameW = 4
	}

	scale := fig.Scale()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		reg := fig.Regions[i]
		mark := " "
		if isSelected(i) {
			mark = glyphSelected
		}
		swatch := lipgloss.NewStyle().Foreground(RampColor(scale.Color(reg.Value))).Render(glyphRegion)
		line := fmt.Sprintf("%s%s %s%s", mark, swatch, fit(reg.Hover, nameW), padLeft(formatValue(reg.Value), valueW))
		if i == cursor {
			line = theme.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
