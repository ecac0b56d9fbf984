package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#A50F15", Dark: "#FB6A4A"}
)

// statusColors returns the footer colors for a status message. Background
// tints are only used on TrueColor terminals.
func statusColors(isError, dark bool) (fg, bg lipgloss.TerminalColor) {
	switch {
	case isError && dark:
		return ThemeFg("#FF5555"), ThemeBg("#3D1A1A")
	case isError:
		return ThemeFg("#CC0000"), ThemeBg("#F8D7DA")
	case dark:
		return ThemeFg("#50FA7B"), ThemeBg("#1A3D2A")
	default:
		return ThemeFg("#007700"), ThemeBg("#D4EDDA")
	}
}

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// panel frames content with a title line, using the focused border when
// focused is set. width and height are outer dimensions.
func panel(title, content string, width, height int, focused bool) string {
	style := PanelStyle
	if focused {
		style = FocusedPanelStyle
	}
	innerW := width - 2
	innerH := height - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}

	titleStyle := lipgloss.NewStyle().Foreground(ColorSubtext).Bold(true)
	if focused {
		titleStyle = titleStyle.Foreground(ColorPrimary)
	}
	lines := []string{titleStyle.Render(truncate(title, innerW))}
	lines = append(lines, strings.Split(content, "\n")...)
	if len(lines) > innerH {
		lines = lines[:innerH]
	}
	return style.
		Width(innerW).
		Height(innerH).
		Render(strings.Join(lines, "\n"))
}

// renderKeyHints renders "key label" pairs for the footer.
func renderKeyHints(hints [][2]string) string {
	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	labelStyle := lipgloss.NewStyle().Foreground(ColorText)
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, keyStyle.Render(h[0])+" "+labelStyle.Render(h[1]))
	}
	return strings.Join(parts, keyStyle.Render("  "))
}
