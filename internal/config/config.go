// Package config handles configuration loading, saving, and defaults for the ft8view CLI
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config directories and files
var (
	ConfigDir  string
	ConfigFile string
)

func init() {
	homeDir, _ := os.UserHomeDir()
	ConfigDir = filepath.Join(homeDir, ".config", "ft8view")
	ConfigFile = filepath.Join(ConfigDir, "settings.json")
}

// DisplaySettings contains UI display options
type DisplaySettings struct {
	Theme         string `json:"theme"`
	ShowCountries bool   `json:"show_countries"`
	ShowSNR       bool   `json:"show_snr"`
	RefreshRate   int    `json:"refresh_rate"`
}

// ConnectionSettings contains report server connection options
type ConnectionSettings struct {
	ServerURL      string `json:"server_url"`
	Monitor        string `json:"monitor"`
	Band           string `json:"band"`
	Token          string `json:"token,omitempty"`
	Live           bool   `json:"live"`
	ReconnectDelay int    `json:"reconnect_delay"`
}

// ChartSettings contains viewport and cache options
type ChartSettings struct {
	PageSize    int `json:"page_size"`
	DebounceMs  int `json:"debounce_ms"`
	HistoryDays int `json:"history_days"`
	InitialMins int `json:"initial_minutes"`
}

// Config is the main configuration container
type Config struct {
	Display    DisplaySettings    `json:"display"`
	Connection ConnectionSettings `json:"connection"`
	Chart      ChartSettings      `json:"chart"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Display: DisplaySettings{
			Theme:         "classic",
			ShowCountries: true,
			ShowSNR:       true,
			RefreshRate:   5,
		},
		Connection: ConnectionSettings{
			ServerURL:      "http://localhost:8080",
			Monitor:        "ft8mon",
			Band:           "50.313",
			Live:           true,
			ReconnectDelay: 2,
		},
		Chart: ChartSettings{
			PageSize:    120,
			DebounceMs:  250,
			HistoryDays: 30,
			InitialMins: 120,
		},
	}
}

// Validate checks the fields a running display cannot tolerate being wrong
func (c *Config) Validate() error {
	if c.Connection.ServerURL == "" {
		return errors.New("connection.server_url must be set")
	}
	if c.Connection.Monitor == "" {
		return errors.New("connection.monitor must be set")
	}
	if c.Connection.Band == "" {
		return errors.New("connection.band must be set")
	}
	if c.Chart.PageSize <= 0 {
		return errors.New("chart.page_size must be positive")
	}
	if c.Chart.HistoryDays <= 0 {
		return errors.New("chart.history_days must be positive")
	}
	if c.Chart.InitialMins <= 0 {
		return errors.New("chart.initial_minutes must be positive")
	}
	return nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir, 0755)
}

// Load loads configuration from file or returns defaults
func Load() (*Config, error) {
	if _, err := os.Stat(ConfigFile); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(ConfigFile)
	if err != nil {
		return DefaultConfig(), nil
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultConfig(), nil
	}

	return config, nil
}

// Save saves configuration to file
func Save(config *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigFile, data, 0644)
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return ConfigFile
}
