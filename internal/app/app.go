// Package app provides the Bubble Tea application model for the ft8view chart
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ft8view/ft8view-go/internal/bucket"
	"github.com/ft8view/ft8view-go/internal/config"
	"github.com/ft8view/ft8view-go/internal/live"
	"github.com/ft8view/ft8view-go/internal/statsapi"
	"github.com/ft8view/ft8view-go/internal/theme"
	"github.com/ft8view/ft8view-go/internal/viewport"
)

// ViewMode represents the current view
type ViewMode int

const (
	ViewChart ViewMode = iota
	ViewSettings
	ViewHelp
)

// panStep is the fraction of the visible window moved per pan keypress
const panStep = 0.25

// zoomFactor is the window width ratio applied per zoom keypress
const zoomFactor = 0.5

// Model is the main application model
type Model struct {
	// Data plumbing
	minutes    *bucket.Cache
	hours      *bucket.Cache
	view       *viewport.Controller
	api        *statsapi.Client
	liveClient *live.Client

	// UI state
	viewMode         ViewMode
	notification     string
	notificationTime float64
	width, height    int
	frame            int
	spinners         []string
	settingsCursor   int

	// Refresh plumbing: viewport subscribers run on fetch goroutines, so
	// they nudge this channel and the Bubble Tea loop picks it up
	changeCh chan struct{}

	// Configuration
	config *config.Config
	theme  *theme.Theme
}

// NewModel creates a new application model
func NewModel(cfg *config.Config) *Model {
	t := theme.Get(cfg.Display.Theme)

	api := statsapi.NewClient(cfg.Connection.ServerURL, cfg.Connection.Monitor, cfg.Connection.Band)
	if cfg.Connection.Token != "" {
		api.SetToken(cfg.Connection.Token)
	}

	minutes := bucket.New(bucket.ResolutionMinute, nil)
	minutes.SetFetchFunc(api.MinutesFetcher(minutes))
	hours := bucket.New(bucket.ResolutionHour, nil)
	hours.SetFetchFunc(api.HoursFetcher(hours))

	lowerBound := time.Now().Unix() - int64(cfg.Chart.HistoryDays)*86400
	minutes.SetLowerBound(lowerBound)
	hours.SetLowerBound(lowerBound)
	minutes.SetPageSize(cfg.Chart.PageSize)
	hours.SetPageSize(cfg.Chart.PageSize)

	ctrl := viewport.New(minutes, hours)
	ctrl.SetLowerBound(lowerBound)
	ctrl.SetPageSize(cfg.Chart.PageSize)
	if cfg.Chart.DebounceMs > 0 {
		ctrl.SetDebounce(time.Duration(cfg.Chart.DebounceMs) * time.Millisecond)
	}

	var liveClient *live.Client
	if cfg.Connection.Live {
		liveClient = live.NewClient(
			cfg.Connection.ServerURL,
			cfg.Connection.Monitor,
			cfg.Connection.Band,
			cfg.Connection.ReconnectDelay,
		)
		if cfg.Connection.Token != "" {
			liveClient.SetToken(cfg.Connection.Token)
		}
	}

	m := &Model{
		minutes:    minutes,
		hours:      hours,
		view:       ctrl,
		api:        api,
		liveClient: liveClient,
		viewMode:   ViewChart,
		spinners:   []string{"◐", "◓", "◑", "◒"},
		changeCh:   make(chan struct{}, 1),
		config:     cfg,
		theme:      t,
	}

	ctrl.Subscribe(m.nudge)

	return m
}

// nudge signals the Bubble Tea loop that the dataset changed. Non-blocking;
// a pending signal already covers any number of changes.
func (m *Model) nudge() {
	select {
	case m.changeCh <- struct{}{}:
	default:
	}
}

// Init initializes the application
func (m *Model) Init() tea.Cmd {
	now := time.Now().Unix()
	m.view.Load(now-int64(m.config.Chart.InitialMins)*60, now)

	cmds := []tea.Cmd{tickCmd(m.config.Display.RefreshRate), changeCmd(m.changeCh)}

	if m.liveClient != nil {
		m.liveClient.Start()
		cmds = append(cmds, liveRecordCmd(m.liveClient))
	}

	return tea.Batch(cmds...)
}

// tickMsg is sent on each animation tick
type tickMsg time.Time

// liveMsg carries one record from the live feed
type liveMsg statsapi.Record

// changeMsg signals that the viewport dataset changed
type changeMsg struct{}

func tickCmd(refreshRate int) tea.Cmd {
	if refreshRate <= 0 {
		refreshRate = 5
	}
	interval := time.Second / time.Duration(refreshRate)
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func liveRecordCmd(client *live.Client) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-client.Records()
		if !ok {
			return nil
		}
		return liveMsg(rec)
	}
}

func changeCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changeMsg{}
	}
}

// Update handles messages and updates state
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m.handleTick()

	case liveMsg:
		m.minutes.Ingest(statsapi.Record(msg).Bucket())
		if m.liveClient == nil {
			return m, nil
		}
		return m, liveRecordCmd(m.liveClient)

	case changeMsg:
		return m, changeCmd(m.changeCh)
	}

	return m, nil
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	m.frame++

	if m.notification != "" {
		m.notificationTime -= 1.0 / float64(max(m.config.Display.RefreshRate, 1))
		if m.notificationTime <= 0 {
			m.notification = ""
		}
	}

	return m, tickCmd(m.config.Display.RefreshRate)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "q" || key == "Q" || key == "ctrl+c" {
		if m.liveClient != nil {
			m.liveClient.Stop()
		}
		_ = config.Save(m.config)
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewSettings:
		return m.handleSettingsKey(key)
	case ViewHelp:
		m.viewMode = ViewChart
		return m, nil
	default:
		return m.handleChartKey(key)
	}
}

func (m *Model) handleChartKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "left", "h":
		m.pan(-panStep)
	case "right", "l":
		m.pan(panStep)
	case "+", "=":
		m.zoom(zoomFactor)
	case "-", "_":
		m.zoom(1 / zoomFactor)
	case "0", "f", "F":
		m.view.SetVisibleFraction(0, 100)
		m.notify("Full range")
	case "1":
		m.loadLast(int64(m.config.Chart.InitialMins) * 60)
		m.notify("Last " + formatSpan(int64(m.config.Chart.InitialMins)*60))
	case "2":
		m.loadLast(7 * 86400)
		m.notify("Last 7 days")
	case "3":
		m.loadLast(int64(m.config.Chart.HistoryDays) * 86400)
		m.notify("Full history")
	case "c", "C":
		m.config.Display.ShowCountries = !m.config.Display.ShowCountries
		if m.config.Display.ShowCountries {
			m.notify("Countries: ON")
		} else {
			m.notify("Countries: OFF")
		}
	case "s", "S":
		m.config.Display.ShowSNR = !m.config.Display.ShowSNR
		if m.config.Display.ShowSNR {
			m.notify("SNR: ON")
		} else {
			m.notify("SNR: OFF")
		}
	case "r", "R":
		m.view.RerangeNow()
		m.notify("Refreshing")
	case "t", "T":
		m.viewMode = ViewSettings
		m.settingsCursor = themeIndex(m.config.Display.Theme)
	case "?":
		m.viewMode = ViewHelp
	}
	return m, nil
}

func (m *Model) handleSettingsKey(key string) (tea.Model, tea.Cmd) {
	names := theme.List()
	switch key {
	case "up", "k":
		if m.settingsCursor > 0 {
			m.settingsCursor--
		}
	case "down", "j":
		if m.settingsCursor < len(names)-1 {
			m.settingsCursor++
		}
	case "enter", " ":
		m.config.Display.Theme = names[m.settingsCursor]
		m.theme = theme.Get(names[m.settingsCursor])
		m.notify("Theme: " + m.theme.Name)
		m.viewMode = ViewChart
	case "esc", "t", "T":
		m.viewMode = ViewChart
	}
	return m, nil
}

// pan shifts the visible window by the given fraction of its own width
func (m *Model) pan(step float64) {
	frac := m.view.VisibleFraction()
	width := frac.End - frac.Start
	shift := width * step
	start := frac.Start + shift
	end := frac.End + shift
	if start < 0 {
		start = 0
		end = width
	}
	if end > 100 {
		end = 100
		start = 100 - width
	}
	m.view.SetVisibleFraction(start, end)
}

// zoom scales the visible window around its center. factor < 1 zooms in.
func (m *Model) zoom(factor float64) {
	frac := m.view.VisibleFraction()
	width := frac.End - frac.Start
	center := (frac.Start + frac.End) / 2

	width *= factor
	if width < 1 {
		width = 1
	}
	if width > 100 {
		width = 100
	}

	start := center - width/2
	end := center + width/2
	if start < 0 {
		start = 0
		end = width
	}
	if end > 100 {
		end = 100
		start = 100 - width
	}
	m.view.SetVisibleFraction(start, end)
}

// loadLast replaces the loaded window with the trailing span seconds
func (m *Model) loadLast(span int64) {
	now := time.Now().Unix()
	begin := now - span
	lowerBound := now - int64(m.config.Chart.HistoryDays)*86400
	if begin < lowerBound {
		begin = lowerBound
	}
	m.view.Load(begin, now)
}

func (m *Model) notify(text string) {
	m.notification = text
	m.notificationTime = 3.0
}

func themeIndex(name string) int {
	for i, n := range theme.List() {
		if n == name {
			return i
		}
	}
	return 0
}
