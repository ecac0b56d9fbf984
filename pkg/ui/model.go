// Package ui implements the agglo terminal dashboard: selectors, a shaded
// county map, a per-county line chart, the raw data table, and metadata.
package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/agglo/pkg/config"
	"github.com/vanderheijden86/agglo/pkg/debug"
	"github.com/vanderheijden86/agglo/pkg/export"
	"github.com/vanderheijden86/agglo/pkg/geo"
	"github.com/vanderheijden86/agglo/pkg/lookup"
	"github.com/vanderheijden86/agglo/pkg/model"
	"github.com/vanderheijden86/agglo/pkg/view"
	"github.com/vanderheijden86/agglo/pkg/watcher"
)

// tab is one top-level screen.
type tab int

const (
	tabDashboard tab = iota
	tabData
	tabAbout
)

var tabNames = []string{"Dashboard", "Data", "About"}

// panelFocus selects which dashboard panel receives cursor keys.
type panelFocus int

const (
	focusMap panelFocus = iota
	focusLine
)

// pickerKind identifies the selector an open picker edits.
type pickerKind int

const (
	pickerYear pickerKind = iota
	pickerIndustry
	pickerMetric
	pickerCounty
)

// sideBySideWidth is the narrowest terminal that shows map and line
// panels next to each other.
const sideBySideWidth = 110

// ReloadFunc rebuilds the session from the dataset on disk.
type ReloadFunc func() (*view.Session, []model.MetadataEntry, error)

// Options configures a dashboard Model.
type Options struct {
	Session    *view.Session
	Boundaries *geo.Collection
	Metadata   []model.MetadataEntry
	Config     config.Config
	// Watcher, when set, triggers Reload on dataset changes.
	Watcher *watcher.Watcher
	Reload  ReloadFunc
}

// FileChangedMsg is sent when the watched dataset changes on disk.
type FileChangedMsg struct{}

// ReloadedMsg carries the outcome of a dataset reload.
type ReloadedMsg struct {
	Session  *view.Session
	Metadata []model.MetadataEntry
	Err      error
}

// ExportDoneMsg carries the outcome of a figure export.
type ExportDoneMsg struct {
	Paths []string
	Err   error
}

// WatchFileCmd waits for the next change notification.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCmd runs reload off the update loop.
func ReloadCmd(reload ReloadFunc) tea.Cmd {
	return func() tea.Msg {
		s, meta, err := reload()
		return ReloadedMsg{Session: s, Metadata: meta, Err: err}
	}
}

// Model is the Bubble Tea model of the dashboard. All selection changes go
// through the session.
type Model struct {
	session    *view.Session
	boundaries *geo.Collection
	metadata   []model.MetadataEntry
	cfg        config.Config

	theme    Theme
	markdown *MarkdownRenderer

	tab    tab
	focus  panelFocus
	cursor int

	showPicker bool
	pickerKind pickerKind
	picker     PickerModel

	table DataTableModel
	about viewport.Model

	showHelp  bool
	exporting bool

	watcher *watcher.Watcher
	reload  ReloadFunc

	width  int
	height int

	statusMsg     string
	statusIsError bool
}

// NewModel creates the dashboard. It starts at a default 120x40 size until
// the first window size message arrives.
func NewModel(opts Options) Model {
	r := lipgloss.NewRenderer(os.Stdout)
	if opts.Config.UI.DarkMode {
		r.SetHasDarkBackground(true)
	}
	theme := DefaultTheme(r)

	m := Model{
		session:    opts.Session,
		boundaries: opts.Boundaries,
		metadata:   opts.Metadata,
		cfg:        opts.Config,
		theme:      theme,
		table:      NewDataTableModel(opts.Session.Rows()),
		about:      viewport.New(80, 20),
		watcher:    opts.Watcher,
		reload:     opts.Reload,
		width:      120,
		height:     40,
	}
	if opts.Boundaries.Len() == 0 {
		m.statusMsg = "No county boundaries loaded; showing ranked list"
	}
	m.resize()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.watcher != nil && m.reload != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

// Session returns the dashboard session.
func (m Model) Session() *view.Session {
	return m.session
}

// Cursor returns the highlighted map position.
func (m Model) Cursor() int {
	return m.cursor
}

// Status returns the footer message and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.statusMsg, m.statusIsError
}

// bodyHeight returns the space between the two header lines and the footer.
func (m Model) bodyHeight() int {
	return max(m.height-3, 3)
}

func (m *Model) resize() {
	m.table.SetSize(m.width, m.bodyHeight())
	m.about.Width = m.width
	m.about.Height = m.bodyHeight()
	m.markdown = NewMarkdownRenderer(min(m.width-4, 100), m.theme.Dark)
	m.about.SetContent(m.markdown.Render(IntroMarkdown + "\n" + MetadataMarkdown(m.metadata)))
	if m.showPicker {
		m.picker.SetSize(m.width, m.bodyHeight())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case FileChangedMsg:
		debug.Log("dataset changed on disk, reloading")
		m.statusMsg = "Dataset changed, reloading…"
		m.statusIsError = false
		return m, ReloadCmd(m.reload)

	case ReloadedMsg:
		var cmd tea.Cmd
		if m.watcher != nil {
			cmd = WatchFileCmd(m.watcher)
		}
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Reload error: %v", msg.Err)
			m.statusIsError = true
			return m, cmd
		}
		m.adoptSession(msg.Session, msg.Metadata)
		m.statusMsg = fmt.Sprintf("Reloaded %d rows", len(m.session.Rows()))
		m.statusIsError = false
		return m, cmd

	case ExportDoneMsg:
		m.exporting = false
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Export failed: %v", msg.Err)
			m.statusIsError = true
		} else {
			m.statusMsg = "Exported " + strings.Join(msg.Paths, ", ")
			m.statusIsError = false
		}
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		m.statusIsError = false

		if m.showPicker {
			return m.handlePickerKey(msg)
		}
		if m.showHelp {
			switch msg.String() {
			case "?", "esc", "q", "enter":
				m.showHelp = false
			case "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		if m.tab == tabData && m.table.Filtering() {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.table.ClearFilter()
		return m, nil
	case "enter":
		m.table.StopFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "1", "2", "3":
		m.tab = tab(key[0] - '1')
		return m, nil
	case "t":
		m.theme = m.theme.WithDarkMode(!m.theme.Dark)
		m.resize()
		return m, nil
	case "e":
		return m.startExport()
	case "c":
		m.copySummary()
		return m, nil
	}

	switch m.tab {
	case tabData:
		if key == "/" {
			return m, m.table.StartFilter()
		}
		if key == "esc" {
			m.table.ClearFilter()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case tabAbout:
		var cmd tea.Cmd
		m.about, cmd = m.about.Update(msg)
		return m, cmd
	}

	switch key {
	case "y":
		m.openPicker(pickerYear)
	case "i":
		if !m.session.IndustryActive() {
			m.statusMsg = "Industry selector is inactive while lines are colored by industry"
			m.statusIsError = true
			return m, nil
		}
		m.openPicker(pickerIndustry)
	case "m":
		m.openPicker(pickerMetric)
	case "g":
		m.openPicker(pickerCounty)
	case "o":
		next := model.ColorByIndustry
		if m.session.State().ColorDimension == model.ColorByIndustry {
			next = model.ColorByMetric
		}
		m.applyChange(m.session.SetColorDimension(next))
		m.statusMsg = "Lines colored by " + next.Label()
	case "tab":
		if m.focus == focusMap {
			m.focus = focusLine
		} else {
			m.focus = focusMap
		}
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "pgdown", "ctrl+d":
		m.moveCursor(10)
	case "pgup", "ctrl+u":
		m.moveCursor(-10)
	case "home":
		m.moveCursor(-m.regionCount())
	case "end":
		m.moveCursor(m.regionCount())
	case " ":
		if m.regionCount() > 0 {
			m.applyChange(m.session.ToggleSelected(m.cursor), nil)
		}
	case "a":
		all := make([]int, m.regionCount())
		for i := range all {
			all[i] = i
		}
		m.applyChange(m.session.SetSelectedIndices(all), nil)
	case "x":
		m.applyChange(m.session.ClearSelection(), nil)
	case "enter":
		st := m.session.State()
		if m.cursor < st.MapSubset.Len() {
			m.applyChange(m.session.SetGeoID(st.MapSubset.Row(m.cursor).GeoID))
		}
	}
	return m, nil
}

func (m Model) regionCount() int {
	return m.session.State().MapSubset.Len()
}

func (m *Model) moveCursor(delta int) {
	n := m.regionCount()
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, n-1)
}

// applyChange reports the outcome of a session change in the footer.
func (m *Model) applyChange(rc view.Recompute, err error) {
	if err != nil {
		m.statusMsg = err.Error()
		m.statusIsError = true
		return
	}
	if rc.Has(view.RecomputeMap) {
		m.moveCursor(0)
	}
	if rc.Has(view.SelectionCleared) {
		m.statusMsg = "Selection cleared"
	}
}

func (m *Model) openPicker(kind pickerKind) {
	st := m.session.State()
	tables := m.session.Tables()

	var (
		title   string
		options []lookup.Option
		current string
	)
	switch kind {
	case pickerYear:
		title, options, current = "Select Year", tables.PeriodOptions(), string(st.Year)
	case pickerIndustry:
		title, options, current = "Select Industry", tables.Industry.Options(), st.IndustryCode
	case pickerMetric:
		title, options, current = "Select LQ Type", tables.MetricOptions(), st.MetricCode
	case pickerCounty:
		title, options, current = "Select County", tables.Geo.Options(), st.GeoID
	}

	m.picker = NewPickerModel(title, options, m.theme)
	m.picker.SetSize(m.width, m.bodyHeight())
	m.picker.SelectCode(current)
	m.pickerKind = kind
	m.showPicker = true
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.showPicker = false
	case "up", "ctrl+p", "ctrl+k":
		m.picker.MoveUp()
	case "down", "ctrl+n", "ctrl+j":
		m.picker.MoveDown()
	case "enter":
		m.showPicker = false
		opt, ok := m.picker.Selected()
		if !ok {
			return m, nil
		}
		switch m.pickerKind {
		case pickerYear:
			m.applyChange(m.session.SetYear(model.Period(opt.Code)))
		case pickerIndustry:
			m.applyChange(m.session.SetIndustry(opt.Code))
		case pickerMetric:
			m.applyChange(m.session.SetMetric(opt.Code))
		case pickerCounty:
			m.applyChange(m.session.SetGeoID(opt.Code))
		}
	default:
		m.picker.UpdateInput(msg)
	}
	return m, nil
}

func (m Model) startExport() (tea.Model, tea.Cmd) {
	if m.exporting {
		return m, nil
	}
	st := m.session.State()
	opts := export.BundleOptions{
		Dir:        m.cfg.Export.Dir,
		Format:     m.cfg.Export.Format,
		Map:        st.MapFigure,
		Line:       st.LineFigure,
		Boundaries: m.boundaries,
		Selected:   st.SelectedIndices,
	}
	m.exporting = true
	m.statusMsg = "Exporting figures…"
	report := export.ReportOptions{
		Title:     m.cfg.UI.Title,
		Selection: m.session.Describe(),
		Map:       st.MapFigure,
		Line:      st.LineFigure,
		Selected:  st.SelectedIndices,
		Mean:      st.MeanValue,
	}
	return m, func() tea.Msg {
		paths, err := export.ExportFigures(opts)
		if err != nil {
			return ExportDoneMsg{Paths: paths, Err: err}
		}
		path, err := export.SaveReport(filepath.Join(opts.Dir, export.ReportFileName), report)
		if err == nil {
			paths = append(paths, path)
		}
		return ExportDoneMsg{Paths: paths, Err: err}
	}
}

// Summary describes the current selection as plain text.
func (m Model) Summary() string {
	st := m.session.State()

	var sb strings.Builder
	for _, kv := range m.session.Describe() {
		fmt.Fprintf(&sb, "%s: %s\n", kv[0], kv[1])
	}
	if len(st.SelectedIndices) > 0 {
		var names []string
		for _, i := range st.SelectedIndices {
			if i < st.MapSubset.Len() {
				r := st.MapSubset.Row(i)
				names = append(names, fmt.Sprintf("%s=%s", r.County, formatValue(r.Value)))
			}
		}
		fmt.Fprintf(&sb, "Selected: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, "Mean Value of Selection: %.2f\n", st.MeanValue)
	return sb.String()
}

func (m *Model) copySummary() {
	if err := clipboard.WriteAll(m.Summary()); err != nil {
		m.statusMsg = fmt.Sprintf("Clipboard error: %v", err)
		m.statusIsError = true
		return
	}
	m.statusMsg = "Copied selection summary to clipboard"
	m.statusIsError = false
}

// adoptSession swaps in a reloaded session, carrying the selection over
// where the new data still has the same values.
func (m *Model) adoptSession(next *view.Session, meta []model.MetadataEntry) {
	prev := m.session.State()
	for _, set := range []func() (view.Recompute, error){
		func() (view.Recompute, error) { return next.SetYear(prev.Year) },
		func() (view.Recompute, error) { return next.SetIndustry(prev.IndustryCode) },
		func() (view.Recompute, error) { return next.SetMetric(prev.MetricCode) },
		func() (view.Recompute, error) { return next.SetColorDimension(prev.ColorDimension) },
		func() (view.Recompute, error) { return next.SetGeoID(prev.GeoID) },
	} {
		if _, err := set(); err != nil {
			debug.Log("reload keeps default selection: %v", err)
		}
	}

	m.session = next
	if meta != nil {
		m.metadata = meta
	}
	m.table = NewDataTableModel(next.Rows())
	m.moveCursor(0)
	m.resize()
}
