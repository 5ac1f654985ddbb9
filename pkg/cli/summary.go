package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme of terminal summaries.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is bright green on the default background.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Row is one label/value line of a Summary.
type Row struct {
	Label string
	Value string
}

// Summary is a titled box of label/value rows.
type Summary struct {
	Theme Theme
	Title string
	Rows  []Row

	// Notes are dimmed lines under the rows.
	Notes []string
}

// Render renders the summary as a rounded box.
func (s Summary) Render() string {
	theme := s.Theme
	if theme == (Theme{}) {
		theme = DefaultTheme
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	label := lipgloss.NewStyle().Foreground(theme.Primary)
	dim := lipgloss.NewStyle().Foreground(theme.Dim)

	width := 0
	for _, r := range s.Rows {
		width = max(width, lipgloss.Width(r.Label))
	}

	lines := []string{title.Render(s.Title), ""}
	for _, r := range s.Rows {
		pad := strings.Repeat(" ", width-lipgloss.Width(r.Label))
		lines = append(lines, label.Render(r.Label)+pad+"  "+r.Value)
	}
	if len(s.Notes) > 0 {
		lines = append(lines, "")
		for _, n := range s.Notes {
			lines = append(lines, dim.Render(n))
		}
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(0, 1)
	return box.Render(strings.Join(lines, "\n"))
}
