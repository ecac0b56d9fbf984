package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// MaxTableRows caps how many matching rows are loaded into the data table.
const MaxTableRows = 1000

// DataTableModel is the raw dataset browser: every row, narrowed by a
// case-insensitive text filter over all columns.
type DataTableModel struct {
	rows      []model.Row
	matches   int
	table     table.Model
	filter    textinput.Model
	filtering bool
	width     int
	height    int
}

var dataColumns = []struct {
	title string
	min   int
	flex  int
}{
	{"GeoID", 6, 0},
	{"County", 14, 3},
	{"NAICS", 6, 0},
	{"Industry", 14, 3},
	{"Metric", 8, 1},
	{"Year", 5, 0},
	{"Value", 9, 0},
}

// NewDataTableModel creates the table over rows.
func NewDataTableModel(rows []model.Row) DataTableModel {
	ti := textinput.New()
	ti.Placeholder = "filter rows..."
	ti.CharLimit = 80
	ti.Prompt = "/ "

	t := table.New(table.WithFocused(true))
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorText).
		Background(ColorBgHighlight).
		Bold(false)
	t.SetStyles(s)

	m := DataTableModel{rows: rows, table: t, filter: ti}
	m.SetSize(80, 20)
	m.apply()
	return m
}

// SetSize resizes the table, spreading spare width over the text columns.
func (m *DataTableModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	fixed, flex := 0, 0
	for _, c := range dataColumns {
		fixed += c.min + 2
		flex += c.flex
	}
	spare := max(width-fixed, 0)

	cols := make([]table.Column, len(dataColumns))
	for i, c := range dataColumns {
		w := c.min
		if flex > 0 {
			w += spare * c.flex / flex
		}
		cols[i] = table.Column{Title: c.title, Width: w}
	}
	m.table.SetColumns(cols)
	m.table.SetWidth(width)
	m.table.SetHeight(max(height-2, 3))
}

// Filtering reports whether the filter input has focus.
func (m *DataTableModel) Filtering() bool {
	return m.filtering
}

// StartFilter focuses the filter input.
func (m *DataTableModel) StartFilter() tea.Cmd {
	m.filtering = true
	m.table.Blur()
	return m.filter.Focus()
}

// StopFilter returns focus to the table, keeping the query.
func (m *DataTableModel) StopFilter() {
	m.filtering = false
	m.filter.Blur()
	m.table.Focus()
}

// ClearFilter drops the query.
func (m *DataTableModel) ClearFilter() {
	m.filter.SetValue("")
	m.StopFilter()
	m.apply()
}

// SetQuery sets the filter text directly.
func (m *DataTableModel) SetQuery(q string) {
	m.filter.SetValue(q)
	m.apply()
}

// Query returns the filter text.
func (m *DataTableModel) Query() string {
	return m.filter.Value()
}

// Matches returns how many rows match the filter, before capping.
func (m *DataTableModel) Matches() int {
	return m.matches
}

// Shown returns how many rows are loaded into the table.
func (m *DataTableModel) Shown() int {
	return len(m.table.Rows())
}

// Update routes a message to the filter input or the table.
func (m DataTableModel) Update(msg tea.Msg) (DataTableModel, tea.Cmd) {
	var cmd tea.Cmd
	if m.filtering {
		before := m.filter.Value()
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != before {
			m.apply()
		}
		return m, cmd
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *DataTableModel) apply() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	out := make([]table.Row, 0, min(len(m.rows), MaxTableRows))
	m.matches = 0
	for i := range m.rows {
		r := &m.rows[i]
		if q != "" && !rowMatches(r, q) {
			continue
		}
		m.matches++
		if len(out) < MaxTableRows {
			out = append(out, tableRow(r))
		}
	}
	m.table.SetRows(out)
	m.table.GotoTop()
}

func rowMatches(r *model.Row, q string) bool {
	for _, f := range []string{r.GeoID, r.County, r.IndustryCode, r.Industry, r.MetricCode, r.Metric, string(r.Year)} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func tableRow(r *model.Row) table.Row {
	return table.Row{
		r.GeoID,
		r.County,
		r.IndustryCode,
		r.Industry,
		r.Metric,
		string(r.Year),
		tableValue(r.Value),
	}
}

func tableValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// View renders the filter line above the table.
func (m DataTableModel) View() string {
	status := fmt.Sprintf("%d rows", m.matches)
	if m.matches > MaxTableRows {
		status = fmt.Sprintf("%d rows (first %d shown)", m.matches, MaxTableRows)
	}
	top := lipgloss.NewStyle().Foreground(ColorMuted).Render(status)
	if m.filtering || m.filter.Value() != "" {
		top = m.filter.View() + "  " + top
	}
	return top + "\n" + m.table.View()
}
