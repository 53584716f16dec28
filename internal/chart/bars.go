// Package chart provides reusable renderers for the telemetry dataset
package chart

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ft8view/ft8view-go/internal/bucket"
	"github.com/ft8view/ft8view-go/internal/theme"
)

// Bars renders the dataset as a column chart. Offline buckets show as a
// dimmed baseline marker so gaps stay visible without reading as zero.
type Bars struct {
	Width  int
	Height int
	Theme  *theme.Theme
}

// NewBars creates a bar chart renderer
func NewBars(t *theme.Theme, width, height int) *Bars {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Bars{Width: width, Height: height, Theme: t}
}

// Render renders the visible slice of the dataset as multiple lines. When
// there are more entries than columns, neighboring entries are merged into
// one column (offline only when all merged entries are offline).
func (b *Bars) Render(entries []bucket.Entry) []string {
	cols := b.columns(entries)

	maxTotal := 1
	for _, c := range cols {
		if c.total > maxTotal {
			maxTotal = c.total
		}
	}

	barStyle := lipgloss.NewStyle().Foreground(b.Theme.Bar)
	peakStyle := lipgloss.NewStyle().Foreground(b.Theme.BarPeak)
	offlineStyle := lipgloss.NewStyle().Foreground(b.Theme.BarOffline)
	emptyStyle := lipgloss.NewStyle().Foreground(b.Theme.TextDim)

	lines := make([]string, b.Height)
	for row := 0; row < b.Height; row++ {
		var sb strings.Builder
		threshold := float64(b.Height-row) / float64(b.Height)

		for col := 0; col < b.Width; col++ {
			if col >= len(cols) {
				sb.WriteString(emptyStyle.Render(" "))
				continue
			}
			c := cols[col]
			switch {
			case c.offline:
				if row == b.Height-1 {
					sb.WriteString(offlineStyle.Render("▒"))
				} else {
					sb.WriteString(emptyStyle.Render("░"))
				}
			case float64(c.total)/float64(maxTotal) >= threshold:
				// Top third of a column renders bright
				if threshold > 0.66 {
					sb.WriteString(peakStyle.Render("█"))
				} else {
					sb.WriteString(barStyle.Render("█"))
				}
			case row == b.Height-1:
				// Zero-signal buckets keep a baseline
				sb.WriteString(barStyle.Render("▁"))
			default:
				sb.WriteString(emptyStyle.Render("░"))
			}
		}
		lines[row] = sb.String()
	}
	return lines
}

// Axis renders the time axis line under the chart: first and last labels
// padded to the chart width
func (b *Bars) Axis(entries []bucket.Entry) string {
	style := lipgloss.NewStyle().Foreground(b.Theme.TextDim)
	if len(entries) == 0 {
		return style.Render(strings.Repeat("─", b.Width))
	}
	left := entries[0].Label
	right := entries[len(entries)-1].Label
	gap := b.Width - len(left) - len(right)
	if gap < 1 {
		return style.Render(left)
	}
	return style.Render(left + strings.Repeat("─", gap) + right)
}

type column struct {
	total   int
	offline bool
}

// columns buckets the entries into at most Width columns
func (b *Bars) columns(entries []bucket.Entry) []column {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) <= b.Width {
		out := make([]column, len(entries))
		for i, e := range entries {
			out[i] = column{total: max(e.Total, 0), offline: e.Offline()}
		}
		return out
	}

	out := make([]column, b.Width)
	for i := range out {
		lo := i * len(entries) / b.Width
		hi := (i + 1) * len(entries) / b.Width
		if hi <= lo {
			hi = lo + 1
		}
		offline := true
		total := 0
		for _, e := range entries[lo:hi] {
			if !e.Offline() {
				offline = false
				total += e.Total
			}
		}
		out[i] = column{total: total, offline: offline}
	}
	return out
}

// Slider renders the zoom slider track with the visible fraction filled
type Slider struct {
	Width int
	Theme *theme.Theme
}

// NewSlider creates a slider renderer
func NewSlider(t *theme.Theme, width int) *Slider {
	if width < 3 {
		width = 3
	}
	return &Slider{Width: width, Theme: t}
}

// Render renders the track for the given percentage window
func (s *Slider) Render(start, end float64) string {
	inner := s.Width - 2
	lo := int(float64(inner) * start / 100)
	hi := int(float64(inner) * end / 100)
	if hi <= lo {
		hi = lo + 1
	}
	if hi > inner {
		hi = inner
	}

	track := lipgloss.NewStyle().Foreground(s.Theme.TextDim)
	window := lipgloss.NewStyle().Foreground(s.Theme.Slider)

	var sb strings.Builder
	sb.WriteString(track.Render("["))
	for i := 0; i < inner; i++ {
		if i >= lo && i < hi {
			sb.WriteString(window.Render("▓"))
		} else {
			sb.WriteString(track.Render("·"))
		}
	}
	sb.WriteString(track.Render("]"))
	return sb.String()
}

// SNRLine renders a compact SNR readout for the visible entries: the
// count-weighted mean over buckets that carried signals
func SNRLine(t *theme.Theme, entries []bucket.Entry) string {
	total := 0
	weighted := 0.0
	for _, e := range entries {
		if e.Total > 0 {
			total += e.Total
			weighted += e.SNR * float64(e.Total)
		}
	}
	style := lipgloss.NewStyle().Foreground(t.Info)
	if total == 0 {
		return style.Render("SNR: ---")
	}
	return style.Render(fmt.Sprintf("SNR: %+.1f dB avg over %d signals", weighted/float64(total), total))
}
