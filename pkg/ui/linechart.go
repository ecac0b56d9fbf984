package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/model"
)

const (
	yAxisWidth  = 8
	glyphPoint  = "●"
	glyphStroke = "·"
)

// plotCell is one character of the plot area. series is -1 when blank.
type plotCell struct {
	series int
	point  bool
}

// linePlot is the rasterized chart: a grid of cells plus the axes it was
// scaled against.
type linePlot struct {
	width   int
	height  int
	cells   []plotCell
	periods []model.Period
	lo, hi  float64
}

func newLinePlot(fig *figure.LineFigure, width, height int) *linePlot {
	lo, hi, ok := fig.YRange()
	if !ok || width < 2 || height < 2 {
		return nil
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	p := &linePlot{
		width:   width,
		height:  height,
		cells:   make([]plotCell, width*height),
		periods: fig.Periods(),
		lo:      lo,
		hi:      hi,
	}
	for i := range p.cells {
		p.cells[i].series = -1
	}

	col := make(map[model.Period]int, len(p.periods))
	for i, per := range p.periods {
		col[per] = p.column(i)
	}

	for si, s := range fig.Series {
		prevX, prevY := -1, -1
		for _, pt := range s.Points {
			x := col[pt.X]
			y := p.row(pt.Y)
			if prevX >= 0 {
				p.stroke(si, prevX, prevY, x, y)
			}
			p.set(x, y, plotCell{series: si, point: true})
			prevX, prevY = x, y
		}
	}
	return p
}

func (p *linePlot) column(i int) int {
	if len(p.periods) <= 1 {
		return p.width / 2
	}
	return int(math.Round(float64(i) * float64(p.width-1) / float64(len(p.periods)-1)))
}

func (p *linePlot) row(v float64) int {
	t := (v - p.lo) / (p.hi - p.lo)
	return clamp(int(math.Round((1-t)*float64(p.height-1))), 0, p.height-1)
}

func (p *linePlot) set(x, y int, c plotCell) {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return
	}
	cur := &p.cells[y*p.width+x]
	if cur.point && !c.point {
		return
	}
	*cur = c
}

// stroke draws the segment between two points with Bresenham's algorithm,
// leaving the endpoints to the markers.
func (p *linePlot) stroke(series, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		if (x != x0 || y != y0) && (x != x1 || y != y1) {
			p.set(x, y, plotCell{series: series})
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// renderLineChart draws the figure as a character plot with a y axis,
// period labels and a legend underneath.
func renderLineChart(fig *figure.LineFigure, width, height int, theme Theme) string {
	if fig.Empty() {
		return theme.MutedText.Render("No data for this county")
	}

	legend := renderLegend(fig, width)
	legendLines := strings.Count(legend, "\n") + 1
	plotW := width - yAxisWidth - 1
	plotH := height - 2 - legendLines
	p := newLinePlot(fig, plotW, plotH)
	if p == nil {
		return legend
	}

	axis := theme.MutedText
	var sb strings.Builder
	for row := 0; row < p.height; row++ {
		label := ""
		if row == 0 || row == p.height-1 || row == p.height/2 {
			label = formatValue(p.hi - (p.hi-p.lo)*float64(row)/float64(p.height-1))
		}
		sb.WriteString(axis.Render(padLeft(truncate(label, yAxisWidth-1), yAxisWidth-1) + " ┤"))
		for col := 0; col < p.width; col++ {
			c := p.cells[row*p.width+col]
			if c.series < 0 {
				sb.WriteByte(' ')
				continue
			}
			glyph := glyphStroke
			if c.point {
				glyph = glyphPoint
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(seriesColor(c.series)).Render(glyph))
		}
		sb.WriteByte('\n')
	}

	sb.WriteString(axis.Render(strings.Repeat(" ", yAxisWidth) + "└" + strings.Repeat("─", p.width)))
	sb.WriteByte('\n')
	sb.WriteString(axis.Render(strings.Repeat(" ", yAxisWidth+1) + periodAxis(p)))
	sb.WriteByte('\n')
	sb.WriteString(legend)
	return sb.String()
}

// periodAxis lays out period labels under their columns, skipping labels
// that would overlap the previous one.
func periodAxis(p *linePlot) string {
	line := []rune(strings.Repeat(" ", p.width))
	next := 0
	for i, per := range p.periods {
		label := []rune(per.String())
		start := p.column(i) - len(label)/2
		start = clamp(start, 0, max(p.width-len(label), 0))
		if start < next {
			continue
		}
		for j, r := range label {
			if start+j < len(line) {
				line[start+j] = r
			}
		}
		next = start + len(label) + 1
	}
	return string(line)
}

func renderLegend(fig *figure.LineFigure, width int) string {
	var lines []string
	cur := ""
	if fig.LegendTitle != "" {
		cur = fig.LegendTitle + ":"
	}
	for i, s := range fig.Series {
		entry := lipgloss.NewStyle().Foreground(seriesColor(i)).Render(glyphPoint) + " " + s.Name
		entryW := lipgloss.Width(entry)
		if cur != "" && lipgloss.Width(cur)+2+entryW > width {
			lines = append(lines, cur)
			cur = ""
		}
		if cur != "" {
			cur += "  "
		}
		cur += entry
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return strings.Join(lines, "\n")
}

func seriesColor(i int) lipgloss.TerminalColor {
	return lipgloss.Color(figure.SeriesColor(i).Hex())
}
