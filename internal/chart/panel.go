package chart

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ft8view/ft8view-go/internal/geo"
	"github.com/ft8view/ft8view-go/internal/theme"
)

// CountryPanel renders the per-country summary of the visible window as a
// ranked list with intensity bars scaled to the summary's max-value hint
type CountryPanel struct {
	Width    int
	MaxRows  int
	BarWidth int
	Theme    *theme.Theme
}

// NewCountryPanel creates a country panel renderer
func NewCountryPanel(t *theme.Theme, width, maxRows int) *CountryPanel {
	if width < 20 {
		width = 20
	}
	if maxRows < 1 {
		maxRows = 1
	}
	return &CountryPanel{
		Width:    width,
		MaxRows:  maxRows,
		BarWidth: 10,
		Theme:    t,
	}
}

// Render renders the ranked country rows
func (p *CountryPanel) Render(summary geo.Summary) []string {
	nameWidth := p.Width - p.BarWidth - 7
	if nameWidth < 8 {
		nameWidth = 8
	}

	textStyle := lipgloss.NewStyle().Foreground(p.Theme.Text)
	dimStyle := lipgloss.NewStyle().Foreground(p.Theme.TextDim)

	ranked := summary.Ranked()
	if len(ranked) == 0 {
		return []string{dimStyle.Render("no signals in window")}
	}

	lines := make([]string, 0, p.MaxRows+1)
	for i, row := range ranked {
		if i >= p.MaxRows {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("… %d more", len(ranked)-p.MaxRows)))
			break
		}
		name := row.Country
		if len(name) > nameWidth {
			name = name[:nameWidth-1] + "…"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			textStyle.Render(fmt.Sprintf("%-*s", nameWidth, name)),
			p.bar(row.Count, summary.Max),
			dimStyle.Render(fmt.Sprintf("%4d", row.Count)),
		))
	}
	return lines
}

// bar renders an intensity bar for count against the scale hint
func (p *CountryPanel) bar(count, scale int) string {
	if scale < 1 {
		scale = 1
	}
	filled := count * p.BarWidth / scale
	if filled > p.BarWidth {
		filled = p.BarWidth
	}
	if filled < 1 && count > 0 {
		filled = 1
	}

	level := float64(count) / float64(scale)
	var style lipgloss.Style
	switch {
	case level >= 0.8:
		style = lipgloss.NewStyle().Foreground(p.Theme.Error)
	case level >= 0.5:
		style = lipgloss.NewStyle().Foreground(p.Theme.Warning)
	default:
		style = lipgloss.NewStyle().Foreground(p.Theme.Success)
	}

	return style.Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(p.Theme.TextDim).Render(strings.Repeat("░", p.BarWidth-filled))
}
