package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ft8view/ft8view-go/internal/bucket"
	"github.com/ft8view/ft8view-go/internal/chart"
	"github.com/ft8view/ft8view-go/internal/live"
	"github.com/ft8view/ft8view-go/internal/theme"
)

const defaultChartWidth = 100
const defaultChartHeight = 12

// View renders the application
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	switch m.viewMode {
	case ViewSettings:
		sb.WriteString(m.renderSettingsPanel())
	case ViewHelp:
		sb.WriteString(m.renderHelpPanel())
	default:
		sb.WriteString(m.renderChart())
	}
	sb.WriteString("\n")

	sb.WriteString(m.renderStatusBar())
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())

	return sb.String()
}

func (m *Model) chartWidth() int {
	if m.width > 20 {
		return m.width - 4
	}
	return defaultChartWidth
}

func (m *Model) chartHeight() int {
	if m.height > 20 {
		return m.height - 12
	}
	return defaultChartHeight
}

func (m *Model) renderHeader() string {
	width := m.chartWidth() + 2
	borderStyle := lipgloss.NewStyle().Foreground(m.theme.Border)
	primaryBright := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright).Bold(true).Reverse(true)
	infoStyle := lipgloss.NewStyle().Foreground(m.theme.Info)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)

	var sb strings.Builder
	sb.WriteString(borderStyle.Render("╔" + strings.Repeat("═", width) + "╗"))
	sb.WriteString("\n")

	title := " FT8VIEW "
	subtitle := fmt.Sprintf(" %s @ %s MHz ", m.config.Connection.Monitor, m.config.Connection.Band)
	fill := width - len(title) - len(subtitle) - 12
	if fill < 2 {
		fill = 2
	}

	sb.WriteString(borderStyle.Render("║ "))
	sb.WriteString(primaryBright.Render(title))
	sb.WriteString(borderStyle.Render(strings.Repeat("═", fill/2)))
	sb.WriteString(textDim.Render(subtitle))
	sb.WriteString(borderStyle.Render(strings.Repeat("═", fill-fill/2)))
	spin := m.spinners[m.frame%4]
	if m.liveClient != nil && m.liveClient.IsConnected() {
		sb.WriteString(infoStyle.Render(" " + spin + " LIVE "))
	} else {
		sb.WriteString(textDim.Render("   POLL "))
	}
	sb.WriteString(borderStyle.Render(" ║"))
	sb.WriteString("\n")
	sb.WriteString(borderStyle.Render("╚" + strings.Repeat("═", width) + "╝"))

	return sb.String()
}

func (m *Model) renderChart() string {
	width := m.chartWidth()
	height := m.chartHeight()

	dataset := m.view.Dataset()
	frac := m.view.VisibleFraction()
	visible := visibleSlice(dataset, frac.Start, frac.End)

	var sb strings.Builder

	bars := chart.NewBars(m.theme, width, height)
	for _, line := range bars.Render(visible) {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("  ")
	sb.WriteString(bars.Axis(visible))
	sb.WriteString("\n")

	slider := chart.NewSlider(m.theme, width)
	sb.WriteString("  ")
	sb.WriteString(slider.Render(frac.Start, frac.End))
	sb.WriteString("\n")

	if m.config.Display.ShowSNR {
		sb.WriteString("  ")
		sb.WriteString(chart.SNRLine(m.theme, visible))
		sb.WriteString("\n")
	}

	if m.config.Display.ShowCountries {
		panel := chart.NewCountryPanel(m.theme, width, 6)
		for _, line := range panel.Render(m.view.GeoSummary()) {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// visibleSlice cuts the dataset to the visible percentage window, the same
// half-open index rule the geo summary uses
func visibleSlice(dataset []bucket.Entry, start, end float64) []bucket.Entry {
	n := len(dataset)
	if n == 0 {
		return nil
	}
	lo := int(ceilFrac(n, start))
	hi := int(ceilFrac(n, end))
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return nil
	}
	return dataset[lo:hi]
}

func ceilFrac(n int, pct float64) int64 {
	v := float64(n) * pct / 100
	i := int64(v)
	if float64(i) < v {
		i++
	}
	return i
}

func (m *Model) renderStatusBar() string {
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	infoStyle := lipgloss.NewStyle().Foreground(m.theme.Info)
	warnStyle := lipgloss.NewStyle().Foreground(m.theme.Warning)

	loaded := m.view.LoadedRange()
	res := m.view.Resolution()

	var sb strings.Builder
	sb.WriteString(textDim.Render(" res:"))
	sb.WriteString(infoStyle.Render(res.String()))
	sb.WriteString(textDim.Render("  window:"))
	sb.WriteString(infoStyle.Render(bucket.Label(loaded.Begin) + " .. " + bucket.Label(loaded.End)))

	pending := m.minutes.PendingCount() + m.hours.PendingCount()
	if pending > 0 {
		sb.WriteString(warnStyle.Render(fmt.Sprintf("  fetching %d", pending)))
	}

	if m.liveClient != nil {
		switch m.liveClient.State() {
		case live.StateConnected:
			sb.WriteString(infoStyle.Render("  live"))
		case live.StateConnecting:
			sb.WriteString(warnStyle.Render("  connecting"))
		default:
			sb.WriteString(textDim.Render("  offline"))
		}
	}

	if m.notification != "" {
		sb.WriteString(warnStyle.Render("  ▸ " + m.notification))
	}

	return sb.String()
}

func (m *Model) renderFooter() string {
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)
	switch m.viewMode {
	case ViewSettings:
		return textDim.Render(" ↑/↓ select · enter apply · esc back")
	case ViewHelp:
		return textDim.Render(" any key to return")
	}
	return textDim.Render(" ←/→ pan · +/- zoom · 0 full · 1/2/3 ranges · c countries · s snr · t theme · ? help · q quit")
}

func (m *Model) renderSettingsPanel() string {
	primary := lipgloss.NewStyle().Foreground(m.theme.Primary).Bold(true)
	selected := lipgloss.NewStyle().Foreground(m.theme.Selected).Bold(true)
	text := lipgloss.NewStyle().Foreground(m.theme.Text)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)

	var sb strings.Builder
	sb.WriteString(primary.Render(" THEME"))
	sb.WriteString("\n\n")

	for i, name := range theme.List() {
		t := theme.Get(name)
		cursor := "   "
		style := text
		if i == m.settingsCursor {
			cursor = " ▸ "
			style = selected
		}
		sb.WriteString(cursor)
		sb.WriteString(style.Render(t.Name))
		sb.WriteString(textDim.Render("  " + t.Description))
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) renderHelpPanel() string {
	primary := lipgloss.NewStyle().Foreground(m.theme.Primary).Bold(true)
	text := lipgloss.NewStyle().Foreground(m.theme.Text)
	textDim := lipgloss.NewStyle().Foreground(m.theme.TextDim)

	keys := []struct{ key, help string }{
		{"←/→ h/l", "pan the visible window"},
		{"+/-", "zoom in / out"},
		{"0 f", "show the full loaded range"},
		{"1", "load the last " + formatSpan(int64(m.config.Chart.InitialMins)*60)},
		{"2", "load the last 7 days"},
		{"3", "load the full history"},
		{"c", "toggle country panel"},
		{"s", "toggle SNR readout"},
		{"r", "re-check the viewport now"},
		{"t", "theme picker"},
		{"q", "save config and quit"},
	}

	var sb strings.Builder
	sb.WriteString(primary.Render(" KEYS"))
	sb.WriteString("\n\n")
	for _, k := range keys {
		sb.WriteString(textDim.Render(fmt.Sprintf("  %-8s", k.key)))
		sb.WriteString(text.Render(k.help))
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// formatSpan renders a second count as a compact duration label
func formatSpan(seconds int64) string {
	switch {
	case seconds%86400 == 0:
		return fmt.Sprintf("%dd", seconds/86400)
	case seconds%3600 == 0:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dm", seconds/60)
	}
}
