// Package theme provides color schemes for the ft8view chart display
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines a color scheme for the chart display
type Theme struct {
	Name        string
	Description string

	// Primary colors
	Primary       lipgloss.Color
	PrimaryBright lipgloss.Color
	PrimaryDim    lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// UI elements
	Selected   lipgloss.Color
	Border     lipgloss.Color
	BorderDim  lipgloss.Color
	Text       lipgloss.Color
	TextDim    lipgloss.Color
	Background lipgloss.Color

	// Chart specific
	Bar        lipgloss.Color
	BarPeak    lipgloss.Color
	BarOffline lipgloss.Color
	Slider     lipgloss.Color
}

// themes contains all available theme definitions
var themes = map[string]*Theme{
	"classic": {
		Name:          "Classic Green",
		Description:   "Traditional green phosphor display",
		Primary:       lipgloss.Color("28"),  // green
		PrimaryBright: lipgloss.Color("46"),  // bright_green
		PrimaryDim:    lipgloss.Color("22"),  // dark_green
		Success:       lipgloss.Color("46"),  // bright_green
		Warning:       lipgloss.Color("226"), // bright_yellow
		Error:         lipgloss.Color("196"), // bright_red
		Info:          lipgloss.Color("51"),  // bright_cyan
		Selected:      lipgloss.Color("226"), // bright_yellow
		Border:        lipgloss.Color("28"),  // green
		BorderDim:     lipgloss.Color("22"),  // dark_green
		Text:          lipgloss.Color("28"),  // green
		TextDim:       lipgloss.Color("22"),  // dark_green
		Background:    lipgloss.Color("0"),   // black
		Bar:           lipgloss.Color("28"),  // green
		BarPeak:       lipgloss.Color("46"),  // bright_green
		BarOffline:    lipgloss.Color("238"), // grey
		Slider:        lipgloss.Color("51"),  // bright_cyan
	},
	"amber": {
		Name:          "Amber CRT",
		Description:   "Warm amber monochrome terminal",
		Primary:       lipgloss.Color("130"), // amber
		PrimaryBright: lipgloss.Color("214"), // bright_amber
		PrimaryDim:    lipgloss.Color("94"),  // dark_amber
		Success:       lipgloss.Color("214"),
		Warning:       lipgloss.Color("220"),
		Error:         lipgloss.Color("196"),
		Info:          lipgloss.Color("215"),
		Selected:      lipgloss.Color("220"),
		Border:        lipgloss.Color("130"),
		BorderDim:     lipgloss.Color("94"),
		Text:          lipgloss.Color("130"),
		TextDim:       lipgloss.Color("94"),
		Background:    lipgloss.Color("0"),
		Bar:           lipgloss.Color("130"),
		BarPeak:       lipgloss.Color("214"),
		BarOffline:    lipgloss.Color("238"),
		Slider:        lipgloss.Color("215"),
	},
	"contrast": {
		Name:          "High Contrast",
		Description:   "Maximum readability white-on-black",
		Primary:       lipgloss.Color("15"),  // white
		PrimaryBright: lipgloss.Color("15"),  // white
		PrimaryDim:    lipgloss.Color("250"), // light_grey
		Success:       lipgloss.Color("10"),  // bright_green
		Warning:       lipgloss.Color("11"),  // bright_yellow
		Error:         lipgloss.Color("9"),   // bright_red
		Info:          lipgloss.Color("14"),  // bright_cyan
		Selected:      lipgloss.Color("11"),
		Border:        lipgloss.Color("15"),
		BorderDim:     lipgloss.Color("250"),
		Text:          lipgloss.Color("15"),
		TextDim:       lipgloss.Color("250"),
		Background:    lipgloss.Color("0"),
		Bar:           lipgloss.Color("15"),
		BarPeak:       lipgloss.Color("11"),
		BarOffline:    lipgloss.Color("240"),
		Slider:        lipgloss.Color("14"),
	},
}

// Get returns a theme by name, defaults to classic if not found
func Get(name string) *Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes["classic"]
}

// List returns all available theme names
func List() []string {
	names := make([]string, 0, len(themes))
	// Return in a consistent order
	order := []string{"classic", "amber", "contrast"}
	for _, name := range order {
		if _, ok := themes[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Style helpers for creating lipgloss styles

// PrimaryStyle returns a style using the primary color
func (t *Theme) PrimaryStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Primary)
}

// BorderStyle returns a style using the border color
func (t *Theme) BorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Border)
}

// TextStyle returns a style using the text color
func (t *Theme) TextStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Text)
}

// TextDimStyle returns a style using the dim text color
func (t *Theme) TextDimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.TextDim)
}

// SuccessStyle returns a style using the success color
func (t *Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

// WarningStyle returns a style using the warning color
func (t *Theme) WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning)
}

// ErrorStyle returns a style using the error color
func (t *Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

// InfoStyle returns a style using the info color
func (t *Theme) InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Info)
}
