package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/agglo/pkg/metrics"
	"github.com/vanderheijden86/agglo/pkg/version"
)

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var body string
	switch {
	case m.showPicker:
		body = m.picker.View()
	case m.showHelp:
		body = m.renderHelpOverlay()
	case m.tab == tabData:
		body = m.table.View()
	case m.tab == tabAbout:
		body = m.about.View()
	default:
		body = m.renderDashboard()
	}

	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderGlobalHeader(),
		m.renderSelectors(),
		lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body),
		m.renderFooter(),
	))
}

// renderGlobalHeader renders the single-line header bar.
// Format:  agglo | title      Dashboard  Data  About
func (m Model) renderGlobalHeader() string {
	appName := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Render("agglo")
	sep := lipgloss.NewStyle().Foreground(ColorMuted).Render(" | ")
	title := lipgloss.NewStyle().Foreground(ColorSubtext).Render(m.cfg.UI.Title)
	left := appName + sep + title

	var tabs []string
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		style := lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1)
		if tab(i) == m.tab {
			style = style.Foreground(ColorText).Bold(true).Underline(true)
		}
		tabs = append(tabs, style.Render(label))
	}
	right := strings.Join(tabs, "")

	filler := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return lipgloss.NewStyle().
		Width(m.width).
		Background(ColorBgHighlight).
		Render(left + strings.Repeat(" ", filler) + right)
}

// renderSelectors shows the current value of every selector with its key.
func (m Model) renderSelectors() string {
	st := m.session.State()
	tables := m.session.Tables()

	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	valueStyle := lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(ColorMuted).Strikethrough(true)

	item := func(key, label, value string, active bool) string {
		v := valueStyle.Render(value)
		if !active {
			v = inactive.Render(value)
		}
		return keyStyle.Render(key+" "+label+":") + " " + v
	}

	industry := truncate(st.IndustryCode+" "+tables.Industry.NameOr(st.IndustryCode, ""), 32)
	county := truncate(tables.Geo.NameOr(st.GeoID, st.GeoID), 28)
	parts := []string{
		item("y", "Year", string(st.Year), true),
		item("i", "Industry", industry, m.session.IndustryActive()),
		item("m", "LQ", tables.Metric.NameOr(st.MetricCode, st.MetricCode), true),
		item("o", "Color by", st.ColorDimension.Label(), true),
		item("g", "County", county, true),
	}
	return truncate(strings.Join(parts, "  "), m.width)
}

func (m Model) renderDashboard() string {
	h := m.bodyHeight()
	if m.width >= sideBySideWidth {
		left := m.width / 2
		return lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderMapPanel(left, h),
			m.renderLinePanel(m.width-left, h),
		)
	}
	top := h / 2
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderMapPanel(m.width, top),
		m.renderLinePanel(m.width, h-top),
	)
}

func (m Model) renderMapPanel(width, height int) string {
	st := m.session.State()
	fig := st.MapFigure
	innerW := max(width-2, 1)
	innerH := max(height-3, 1)

	title := fmt.Sprintf("Map · %s · %s", fig.ColorTitle, st.Year)
	if fig.ColorTitle == "" {
		title = fmt.Sprintf("Map · %s", st.Year)
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Foreground(ColorText).Bold(true).
		Render(fmt.Sprintf("Mean Value of Selection: %.2f", st.MeanValue))+
		lipgloss.NewStyle().Foreground(ColorMuted).
			Render(fmt.Sprintf("  (%d of %d selected)", len(st.SelectedIndices), st.MapSubset.Len())))
	if bar := renderColorBar(fig, innerW); bar != "" {
		lines = append(lines, bar)
	}

	listH := innerH - len(lines)
	if m.boundaries.Len() > 0 && listH >= 8 {
		rasterH := listH / 2
		if raster := renderMapRaster(fig, m.boundaries, st.IsSelected, m.cursor, innerW, rasterH); raster != "" {
			lines = append(lines, raster)
			listH -= rasterH
		}
	}
	lines = append(lines, renderRegionList(fig, st.IsSelected, m.cursor, innerW, listH, m.theme))

	return panel(title, strings.Join(lines, "\n"), width, height, m.focus == focusMap)
}

func (m Model) renderLinePanel(width, height int) string {
	fig := m.session.State().LineFigure
	innerW := max(width-2, 1)
	innerH := max(height-3, 1)
	return panel(fig.FullTitle(), renderLineChart(fig, innerW, innerH, m.theme), width, height, m.focus == focusLine)
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		fg, bg := statusColors(m.statusIsError, m.theme.Dark)
		return lipgloss.NewStyle().Foreground(fg).Background(bg).Width(m.width).Render(" " + truncate(m.statusMsg, m.width-2))
	}

	var hints [][2]string
	switch m.tab {
	case tabData:
		hints = [][2]string{{"/", "filter"}, {"esc", "clear"}, {"↑/↓", "scroll"}}
	case tabAbout:
		hints = [][2]string{{"↑/↓", "scroll"}}
	default:
		hints = [][2]string{{"y/i/m/g", "select"}, {"o", "color"}, {"space", "mark"}, {"x", "clear"}, {"enter", "county"}}
	}
	hints = append(hints, [2]string{"e", "export"}, [2]string{"c", "copy"}, [2]string{"?", "help"}, [2]string{"q", "quit"})
	return lipgloss.NewStyle().Width(m.width).Render(" " + truncate(renderKeyHints(hints), m.width-2))
}

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{"Selectors", [][2]string{
		{"y", "year"},
		{"i", "industry (inactive while colored by industry)"},
		{"m", "location quotient type"},
		{"g", "county for the line chart"},
		{"o", "color lines by metric or industry"},
	}},
	{"Map", [][2]string{
		{"j/k", "move cursor"},
		{"space", "mark or unmark county"},
		{"a", "mark all counties"},
		{"x", "clear marks"},
		{"enter", "show county in line chart"},
		{"tab", "switch panel"},
	}},
	{"General", [][2]string{
		{"1/2/3", "dashboard, data, about"},
		{"/", "filter data table"},
		{"e", "export figures"},
		{"c", "copy selection summary"},
		{"t", "toggle light/dark"},
		{"q", "quit"},
	}},
}

func (m Model) renderHelpOverlay() string {
	t := m.theme
	keyStyle := t.Renderer.NewStyle().Foreground(t.Accent).Bold(true)
	var lines []string
	lines = append(lines, t.Title.Render("agglo "+version.Version))
	for _, sec := range helpSections {
		lines = append(lines, "", t.PrimaryBold.Render(sec.title))
		for _, k := range sec.keys {
			lines = append(lines, keyStyle.Render(padRight(k[0], 8))+k[1])
		}
	}
	lines = append(lines, "", t.MutedText.Render("press ? or esc to close"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 3).
		Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, box)
}
