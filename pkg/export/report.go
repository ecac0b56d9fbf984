package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// ReportFileName is the file name, without extension, of the Markdown report.
const ReportFileName = "agglo-report"

// ReportOptions describes the dashboard state written by GenerateReport.
type ReportOptions struct {
	Title string
	// Selection holds label/value pairs describing the active selectors.
	Selection [][2]string
	Map       *figure.MapFigure
	Line      *figure.LineFigure
	// Selected are highlighted positions within Map.Regions.
	Selected []int
	Mean     float64
	// Generated defaults to time.Now.
	Generated time.Time
}

// GenerateReport renders the selection, the map values and the line chart
// as a Markdown document.
func GenerateReport(opts ReportOptions) string {
	var sb strings.Builder

	title := opts.Title
	if title == "" {
		title = "Location Quotient Report"
	}
	generated := opts.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	fmt.Fprintf(&sb, "# %s\n\n", escapeCell(title))
	fmt.Fprintf(&sb, "*Generated: %s*\n\n", generated.Format(time.RFC1123))

	sb.WriteString("## Selection\n\n")
	sb.WriteString("| Field | Value |\n|-------|-------|\n")
	for _, kv := range opts.Selection {
		fmt.Fprintf(&sb, "| **%s** | %s |\n", escapeCell(kv[0]), escapeCell(kv[1]))
	}
	fmt.Fprintf(&sb, "| **Mean Value of Selection** | %s |\n\n", reportValue(opts.Mean))

	sb.WriteString(mapSection(opts.Map, opts.Selected))
	sb.WriteString(lineSection(opts.Line))
	return sb.String()
}

func mapSection(fig *figure.MapFigure, selected []int) string {
	var sb strings.Builder
	heading := "Map"
	if fig != nil && fig.ColorTitle != "" {
		heading = "Map: " + fig.ColorTitle
	}
	fmt.Fprintf(&sb, "## %s\n\n", escapeCell(heading))
	if fig.Empty() {
		sb.WriteString("_No counties match this selection._\n\n")
		return sb.String()
	}

	marked := make(map[int]bool, len(selected))
	for _, i := range selected {
		marked[i] = true
	}
	sb.WriteString("| # | County | FIPS | Value | Selected |\n|---|--------|------|-------|----------|\n")
	for i, r := range fig.Regions {
		mark := ""
		if marked[i] {
			mark = "✓"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n", i, escapeCell(r.Hover), r.Location, reportValue(r.Value), mark)
	}
	sb.WriteString("\n")
	return sb.String()
}

// lineSection pivots the series into one row per period.
func lineSection(fig *figure.LineFigure) string {
	var sb strings.Builder
	heading := "Line Chart"
	if fig != nil && fig.Title != "" {
		heading = fig.Title
	}
	fmt.Fprintf(&sb, "## %s\n\n", escapeCell(heading))
	if fig.Empty() {
		sb.WriteString("_No data for this county._\n\n")
		return sb.String()
	}

	periodSet := make(map[model.Period]bool)
	values := make([]map[model.Period]float64, len(fig.Series))
	for i, s := range fig.Series {
		values[i] = make(map[model.Period]float64, len(s.Points))
		for _, p := range s.Points {
			values[i][p.X] = p.Y
			periodSet[p.X] = true
		}
	}
	periods := make([]model.Period, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Less(periods[j]) })

	xLabel := fig.XLabel
	if xLabel == "" {
		xLabel = "Year"
	}
	sb.WriteString("| " + escapeCell(xLabel))
	for _, s := range fig.Series {
		sb.WriteString(" | " + escapeCell(s.Name))
	}
	sb.WriteString(" |\n|---")
	for range fig.Series {
		sb.WriteString("|---")
	}
	sb.WriteString("|\n")
	for _, p := range periods {
		sb.WriteString("| " + string(p))
		for i := range fig.Series {
			v, ok := values[i][p]
			if !ok {
				sb.WriteString(" | ")
				continue
			}
			sb.WriteString(" | " + reportValue(v))
		}
		sb.WriteString(" |\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// SaveReport writes the report to path, adding a .md extension when path
// has none.
func SaveReport(path string, opts ReportOptions) (string, error) {
	if path == "" {
		return "", fmt.Errorf("output path is required")
	}
	if filepath.Ext(path) == "" {
		path += ".md"
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(GenerateReport(opts)), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// escapeCell keeps text from breaking a Markdown table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func reportValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
