package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ft8view/ft8view-go/internal/bucket"
	"github.com/ft8view/ft8view-go/internal/config"
	"github.com/ft8view/ft8view-go/internal/statsapi"
)

// emptyServer answers every stats route with an empty record list so the
// fetch goroutines resolve cleanly during tests.
func emptyServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(serverURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Connection.ServerURL = serverURL
	cfg.Connection.Live = false
	// Keep the debounce timer inert for the duration of a test
	cfg.Chart.DebounceMs = 60000
	return cfg
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	return NewModel(testConfig(emptyServer(t).URL))
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t)

	if m.viewMode != ViewChart {
		t.Errorf("Expected chart view, got %v", m.viewMode)
	}
	if m.theme == nil || m.theme.Name == "" {
		t.Error("Expected a resolved theme")
	}
	if m.minutes.Resolution() != bucket.ResolutionMinute {
		t.Errorf("Minute cache resolution = %d", m.minutes.Resolution())
	}
	if m.hours.Resolution() != bucket.ResolutionHour {
		t.Errorf("Hour cache resolution = %d", m.hours.Resolution())
	}
	if m.liveClient != nil {
		t.Error("Live client should not exist when live is disabled")
	}
}

func TestNewModelCreatesLiveClient(t *testing.T) {
	cfg := testConfig(emptyServer(t).URL)
	cfg.Connection.Live = true
	m := NewModel(cfg)

	if m.liveClient == nil {
		t.Fatal("Expected a live client when live is enabled")
	}
}

func TestWindowSizeMsg(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(*Model)

	if m.width != 120 || m.height != 40 {
		t.Errorf("Expected 120x40, got %dx%d", m.width, m.height)
	}
}

func TestQuitSavesConfig(t *testing.T) {
	tmp := t.TempDir()
	oldDir, oldFile := config.ConfigDir, config.ConfigFile
	config.ConfigDir = tmp
	config.ConfigFile = filepath.Join(tmp, "settings.json")
	defer func() {
		config.ConfigDir, config.ConfigFile = oldDir, oldFile
	}()

	m := newTestModel(t)
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected quit message")
	}
	if _, err := os.Stat(config.ConfigFile); err != nil {
		t.Errorf("Config was not saved: %v", err)
	}
}

func TestPanShiftsWindow(t *testing.T) {
	m := newTestModel(t)
	now := time.Now().Unix()
	m.view.Load(now-7200, now)

	m.view.SetVisibleFraction(20, 40)
	m.pan(panStep)

	frac := m.view.VisibleFraction()
	if frac.Start != 25 || frac.End != 45 {
		t.Errorf("Expected (25, 45), got (%v, %v)", frac.Start, frac.End)
	}
}

func TestPanClampsAtEdges(t *testing.T) {
	m := newTestModel(t)
	now := time.Now().Unix()
	m.view.Load(now-7200, now)

	m.view.SetVisibleFraction(0, 20)
	m.pan(-panStep)
	frac := m.view.VisibleFraction()
	if frac.Start != 0 || frac.End != 20 {
		t.Errorf("Left clamp: expected (0, 20), got (%v, %v)", frac.Start, frac.End)
	}

	m.view.SetVisibleFraction(80, 100)
	m.pan(panStep)
	frac = m.view.VisibleFraction()
	if frac.Start != 80 || frac.End != 100 {
		t.Errorf("Right clamp: expected (80, 100), got (%v, %v)", frac.Start, frac.End)
	}
}

func TestZoomInNarrowsAroundCenter(t *testing.T) {
	m := newTestModel(t)
	now := time.Now().Unix()
	m.view.Load(now-7200, now)

	m.zoom(zoomFactor)
	frac := m.view.VisibleFraction()
	if frac.Start != 25 || frac.End != 75 {
		t.Errorf("Expected (25, 75), got (%v, %v)", frac.Start, frac.End)
	}

	m.zoom(1 / zoomFactor)
	frac = m.view.VisibleFraction()
	if frac.Start != 0 || frac.End != 100 {
		t.Errorf("Expected (0, 100), got (%v, %v)", frac.Start, frac.End)
	}
}

func TestZoomFloorsWindowWidth(t *testing.T) {
	m := newTestModel(t)
	now := time.Now().Unix()
	m.view.Load(now-7200, now)

	for i := 0; i < 20; i++ {
		m.zoom(zoomFactor)
	}
	frac := m.view.VisibleFraction()
	if frac.End-frac.Start < 1 {
		t.Errorf("Window collapsed below floor: (%v, %v)", frac.Start, frac.End)
	}
}

func TestChartKeyToggles(t *testing.T) {
	m := newTestModel(t)
	m.config.Display.ShowCountries = true
	m.config.Display.ShowSNR = true

	m.handleChartKey("c")
	if m.config.Display.ShowCountries {
		t.Error("Expected countries toggled off")
	}
	if m.notification == "" {
		t.Error("Expected a notification")
	}

	m.handleChartKey("s")
	if m.config.Display.ShowSNR {
		t.Error("Expected SNR toggled off")
	}
}

func TestFullRangeKey(t *testing.T) {
	m := newTestModel(t)
	now := time.Now().Unix()
	m.view.Load(now-7200, now)
	m.view.SetVisibleFraction(30, 60)

	m.handleChartKey("0")
	frac := m.view.VisibleFraction()
	if frac.Start != 0 || frac.End != 100 {
		t.Errorf("Expected (0, 100), got (%v, %v)", frac.Start, frac.End)
	}
}

func TestHelpModeRoundTrip(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.handleKey(keyRune('?'))
	m = updated.(*Model)
	if m.viewMode != ViewHelp {
		t.Fatalf("Expected help view, got %v", m.viewMode)
	}

	updated, _ = m.handleKey(keyRune('x'))
	m = updated.(*Model)
	if m.viewMode != ViewChart {
		t.Errorf("Expected chart view after keypress, got %v", m.viewMode)
	}
}

func TestSettingsAppliesTheme(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.handleKey(keyRune('t'))
	m = updated.(*Model)
	if m.viewMode != ViewSettings {
		t.Fatalf("Expected settings view, got %v", m.viewMode)
	}

	updated, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(*Model)
	updated, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)

	if m.viewMode != ViewChart {
		t.Errorf("Expected return to chart view, got %v", m.viewMode)
	}
	if m.config.Display.Theme != "amber" {
		t.Errorf("Expected amber applied, got %s", m.config.Display.Theme)
	}
	if m.theme.Name != "Amber CRT" {
		t.Errorf("Model theme was not swapped, got %s", m.theme.Name)
	}
}

func TestSettingsEscapeKeepsTheme(t *testing.T) {
	m := newTestModel(t)
	before := m.config.Display.Theme

	m.viewMode = ViewSettings
	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(*Model)

	if m.viewMode != ViewChart {
		t.Errorf("Expected chart view, got %v", m.viewMode)
	}
	if m.config.Display.Theme != before {
		t.Errorf("Theme changed on escape: %s", m.config.Display.Theme)
	}
}

func TestTickExpiresNotification(t *testing.T) {
	m := newTestModel(t)
	m.notify("hello")

	for i := 0; i < 16; i++ {
		updated, _ := m.handleTick()
		m = updated.(*Model)
	}
	if m.notification != "" {
		t.Errorf("Notification still present: %q", m.notification)
	}
	if m.frame != 16 {
		t.Errorf("Expected 16 frames, got %d", m.frame)
	}
}

func TestLiveMsgIngestsRecord(t *testing.T) {
	m := newTestModel(t)

	epoch := m.minutes.Align(time.Now().Unix())
	rec := statsapi.Record{CTime: epoch, Total: 3, SNR: -8, Countries: map[string]int{"US": 3}}
	updated, cmd := m.Update(liveMsg(rec))
	m = updated.(*Model)

	if cmd != nil {
		t.Error("Expected no follow-up command without a live client")
	}
	entry, ok := m.minutes.Get(epoch)
	if !ok {
		t.Fatal("Record was not ingested")
	}
	if entry.Total != 3 {
		t.Errorf("Expected total 3, got %d", entry.Total)
	}
}

func TestLoadLastClampsToHistory(t *testing.T) {
	m := newTestModel(t)
	m.config.Chart.HistoryDays = 1

	m.loadLast(30 * 86400)

	loaded := m.view.LoadedRange()
	now := time.Now().Unix()
	if now-loaded.Begin > 86400+3600 {
		t.Errorf("Loaded range reaches past history bound: begin %d", loaded.Begin)
	}
}

func TestThemeIndex(t *testing.T) {
	if themeIndex("classic") != 0 {
		t.Errorf("classic index = %d", themeIndex("classic"))
	}
	if themeIndex("no-such-theme") != 0 {
		t.Errorf("Unknown theme should fall back to 0, got %d", themeIndex("no-such-theme"))
	}
}
