// Package main provides the entry point for the ft8view CLI application
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ft8view/ft8view-go/internal/app"
	"github.com/ft8view/ft8view-go/internal/config"
	"github.com/ft8view/ft8view-go/internal/theme"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	monitor     string
	band        string
	token       string
	themeName   string
	historyDays int
	initialMins int
	noLive      bool
	listThemes  bool
)

var rootCmd = &cobra.Command{
	Use:   "ft8view",
	Short: "FT8View - FT8 Reception Report Chart",
	Long: `FT8View - FT8 Reception Report Chart

Interactive bar chart of decoded FT8 signal counts per minute, hour,
and day, with country breakdown and SNR readout.
Settings saved to ~/.config/ft8view/settings.json

Examples:
  ft8view --server http://stats.example.net --monitor ft8mon --band 50.313
  ft8view --theme amber --history 14
  ft8view --no-live
  ft8view configure`,
	RunE: run,
}

func init() {
	// Global flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Report server base URL")
	rootCmd.PersistentFlags().StringVar(&monitor, "monitor", "", "Monitor id to display")
	rootCmd.PersistentFlags().StringVar(&band, "band", "", "Band in MHz (e.g. 50.313)")

	// Root command flags
	rootCmd.Flags().StringVar(&token, "token", "", "Access token (or use FT8VIEW_TOKEN env)")
	rootCmd.Flags().StringVar(&themeName, "theme", "", "Color theme")
	rootCmd.Flags().IntVar(&historyDays, "history", 0, "History depth in days")
	rootCmd.Flags().IntVar(&initialMins, "initial", 0, "Initial window in minutes")
	rootCmd.Flags().BoolVar(&noLive, "no-live", false, "Disable the live websocket feed")
	rootCmd.Flags().BoolVar(&listThemes, "list-themes", false, "List available themes")

	rootCmd.AddCommand(configureCmd)
}

func main() {
	if envToken := os.Getenv("FT8VIEW_TOKEN"); envToken != "" && token == "" {
		token = envToken
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if listThemes {
		fmt.Println("\nAvailable Themes:")
		for _, name := range theme.List() {
			t := theme.Get(name)
			fmt.Printf("  %-10s %-15s - %s\n", name, t.Name, t.Description)
		}
		fmt.Println()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Printf("  FT8VIEW - %s @ %s MHz\n", cfg.Connection.Monitor, cfg.Connection.Band)
	fmt.Printf("  Connecting to %s...\n\n", cfg.Connection.ServerURL)

	model := app.NewModel(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return err
	}

	return nil
}

// applyOverrides folds command line flags over the loaded configuration
func applyOverrides(cfg *config.Config) {
	if serverURL != "" {
		cfg.Connection.ServerURL = serverURL
	}
	if monitor != "" {
		cfg.Connection.Monitor = monitor
	}
	if band != "" {
		cfg.Connection.Band = band
	}
	if token != "" {
		cfg.Connection.Token = token
	}
	if themeName != "" {
		cfg.Display.Theme = themeName
	}
	if historyDays > 0 {
		cfg.Chart.HistoryDays = historyDays
	}
	if initialMins > 0 {
		cfg.Chart.InitialMins = initialMins
	}
	if noLive {
		cfg.Connection.Live = false
	}
}
