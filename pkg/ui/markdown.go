package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/agglo/pkg/model"
)

// PaperURL is the user guide describing proximity-adjusted location quotients.
const PaperURL = "https://www.statsamerica.org/downloads/user-guides/user-guide-PALQ.pdf"

// IntroMarkdown is the text of the intro card.
const IntroMarkdown = `## A New Metric for Industrial Agglomeration

Industrial agglomeration is traditionally measured with the **Location
Quotient (LQ)**. It is simple but limited: sparsely populated, remote
counties can show high LQs despite low employment counts.

The [PA-LQ user guide](` + PaperURL + `) proposes **Proximity Adjusted
Location Quotients (PA-LQ or CLQ)** to address this.

Explore LQs and CLQs for different industries and counties below and
compare the results.
`

// MarkdownRenderer renders markdown for the terminal, falling back to the
// raw text when glamour is unavailable.
type MarkdownRenderer struct {
	r     *glamour.TermRenderer
	width int
}

// NewMarkdownRenderer creates a renderer wrapping at width columns.
func NewMarkdownRenderer(width int, dark bool) *MarkdownRenderer {
	if width < 20 {
		width = 20
	}
	style := glamour.WithStandardStyle("light")
	if dark {
		style = glamour.WithStandardStyle("dark")
	}
	r, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r = nil
	}
	return &MarkdownRenderer{r: r, width: width}
}

// Width returns the wrap width.
func (m *MarkdownRenderer) Width() int {
	return m.width
}

// Render converts markdown to styled terminal text.
func (m *MarkdownRenderer) Render(md string) string {
	if m == nil || m.r == nil {
		return md
	}
	out, err := m.r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// MetadataMarkdown formats the column metadata as a markdown table.
func MetadataMarkdown(entries []model.MetadataEntry) string {
	var sb strings.Builder
	sb.WriteString("## Dataset Metadata\n\n")
	if len(entries) == 0 {
		sb.WriteString("_No metadata available._\n")
		return sb.String()
	}
	sb.WriteString("| Column | Description | Source |\n")
	sb.WriteString("|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", mdCell(e.Column), mdCell(e.Description), mdCell(e.Source))
	}
	return sb.String()
}

func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
