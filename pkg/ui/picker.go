package ui

import (
	"sort"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/agglo/pkg/lookup"
)

// PickerModel is a fuzzy search popup over one selector's options.
type PickerModel struct {
	title         string
	all           []lookup.Option
	filtered      []lookup.Option
	input         textinput.Model
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewPickerModel creates a picker. Options keep their given order until a
// query is typed.
func NewPickerModel(title string, options []lookup.Option, theme Theme) PickerModel {
	opts := make([]lookup.Option, len(options))
	copy(opts, options)

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30
	ti.Focus()

	return PickerModel{
		title:    title,
		all:      opts,
		filtered: opts,
		input:    ti,
		theme:    theme,
	}
}

// SetSize updates the picker dimensions
func (m *PickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Title returns the picker heading.
func (m *PickerModel) Title() string {
	return m.title
}

// SelectCode moves the cursor onto code when it is visible.
func (m *PickerModel) SelectCode(code string) {
	for i, o := range m.filtered {
		if o.Code == code {
			m.selectedIndex = i
			return
		}
	}
}

// MoveUp moves selection up
func (m *PickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *PickerModel) MoveDown() {
	if m.selectedIndex < len(m.filtered)-1 {
		m.selectedIndex++
	}
}

// Selected returns the option under the cursor.
func (m *PickerModel) Selected() (lookup.Option, bool) {
	if len(m.filtered) == 0 || m.selectedIndex >= len(m.filtered) {
		return lookup.Option{}, false
	}
	return m.filtered[m.selectedIndex], true
}

// UpdateInput processes a key message for the text input
func (m *PickerModel) UpdateInput(msg interface{}) {
	m.input, _ = m.input.Update(msg)
	m.filter()
}

// SetQuery replaces the search text.
func (m *PickerModel) SetQuery(q string) {
	m.input.SetValue(q)
	m.filter()
}

// Reset clears the input and resets selection
func (m *PickerModel) Reset() {
	m.input.SetValue("")
	m.selectedIndex = 0
	m.filter()
}

// InputValue returns the current input value
func (m *PickerModel) InputValue() string {
	return m.input.Value()
}

// FilteredCount returns the number of visible options
func (m *PickerModel) FilteredCount() int {
	return len(m.filtered)
}

// filter narrows the options by fuzzy matching the query against both the
// display name and the code.
func (m *PickerModel) filter() {
	query := strings.ToLower(strings.TrimSpace(m.input.Value()))
	if query == "" {
		m.filtered = m.all
		m.selectedIndex = clamp(m.selectedIndex, 0, max(len(m.filtered)-1, 0))
		return
	}

	type scored struct {
		opt   lookup.Option
		score int
	}

	var matches []scored
	for _, o := range m.all {
		score := max(fuzzyScore(o.Name, query), fuzzyScore(o.Code, query))
		if score > 0 {
			matches = append(matches, scored{o, score})
		}
	}

	// Sort by score (higher is better), then by name
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].opt.Name < matches[j].opt.Name
	})

	m.filtered = make([]lookup.Option, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.opt
	}

	// Keep selection in bounds
	if m.selectedIndex >= len(m.filtered) {
		m.selectedIndex = len(m.filtered) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

// fuzzyScore returns a score for how well query matches label (0 = no match)
// Uses fzf-style scoring: consecutive matches, word boundary bonuses
func fuzzyScore(label, query string) int {
	label = strings.ToLower(label)
	query = strings.ToLower(query)

	if label == query {
		return 1000
	}
	if strings.HasPrefix(label, query) {
		return 500 + len(query)
	}
	if strings.Contains(label, query) {
		return 200 + len(query)
	}

	// Fuzzy subsequence match
	li, qi := 0, 0
	score := 0
	consecutive := 0
	lastMatchIdx := -1

	for li < len(label) && qi < len(query) {
		if label[li] == query[qi] {
			qi++
			matchScore := 10

			if lastMatchIdx == li-1 {
				consecutive++
				matchScore += consecutive * 5
			} else {
				consecutive = 0
			}

			// Word boundary
			if li == 0 || !unicode.IsLetter(rune(label[li-1])) {
				matchScore += 15
			}

			score += matchScore
			lastMatchIdx = li
		}
		li++
	}

	if qi == len(query) {
		return score
	}
	return 0
}

// View renders the picker overlay
func (m *PickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 56
	if m.width < 66 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	maxVisible := 10
	if m.height < 15 {
		maxVisible = m.height - 7
	}
	if maxVisible < 3 {
		maxVisible = 3
	}

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true)
	lines = append(lines, titleStyle.Render(m.title))
	lines = append(lines, "")

	inputStyle := t.Renderer.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(t.Secondary).
		Padding(0, 1).
		Width(boxWidth - 6)
	lines = append(lines, inputStyle.Render(m.input.View()))
	lines = append(lines, "")

	if len(m.filtered) == 0 {
		dimStyle := t.Renderer.NewStyle().
			Foreground(t.Secondary).
			Italic(true)
		lines = append(lines, dimStyle.Render("  No matches"))
	} else {
		start := 0
		if m.selectedIndex >= maxVisible {
			start = m.selectedIndex - maxVisible + 1
		}
		end := min(start+maxVisible, len(m.filtered))

		codeWidth := 0
		for _, o := range m.filtered[start:end] {
			if o.Code != o.Name {
				codeWidth = max(codeWidth, len(o.Code))
			}
		}

		for i := start; i < end; i++ {
			o := m.filtered[i]
			isSelected := i == m.selectedIndex

			itemStyle := t.Renderer.NewStyle()
			if isSelected {
				itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
			} else {
				itemStyle = itemStyle.Foreground(t.Base.GetForeground())
			}

			prefix := "  "
			if isSelected {
				prefix = "> "
			}

			label := o.Name
			if codeWidth > 0 {
				label = padRight(o.Code, codeWidth) + "  " + o.Name
			}
			lines = append(lines, itemStyle.Render(prefix+truncateRunesHelper(label, boxWidth-8, "...")))
		}

		if len(m.filtered) > maxVisible {
			countStyle := t.Renderer.NewStyle().
				Foreground(t.Secondary).
				Italic(true)
			lines = append(lines, "")
			lines = append(lines, countStyle.Render(
				"  "+strings.Repeat(" ", max(boxWidth/2-10, 0))+
					"("+itoa(m.selectedIndex+1)+"/"+itoa(len(m.filtered))+")",
			))
		}
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("↑/↓: navigate | enter: apply | esc: cancel"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}

// itoa is a simple int to string helper
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
