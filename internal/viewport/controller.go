// Package viewport owns the visible time window, the active resolution and
// the re-ranging of the dataset handed to the chart
package viewport

import (
	"log"
	"sync"
	"time"

	"github.com/ft8view/ft8view-go/internal/bucket"
	"github.com/ft8view/ft8view-go/internal/geo"
)

// Resolution selects the bucket width of the presented dataset. Minute and
// hour map onto stored caches; day is derived from hours on the fly.
type Resolution int

const (
	ResolutionMinute Resolution = iota
	ResolutionHour
	ResolutionDay
)

// String returns the resolution name for status display
func (r Resolution) String() string {
	switch r {
	case ResolutionHour:
		return "hour"
	case ResolutionDay:
		return "day"
	default:
		return "minute"
	}
}

// Seconds returns the bucket width of the resolution
func (r Resolution) Seconds() int64 {
	switch r {
	case ResolutionHour:
		return bucket.ResolutionHour
	case ResolutionDay:
		return daySeconds
	default:
		return bucket.ResolutionMinute
	}
}

const daySeconds int64 = 24 * 3600

// Width thresholds of the resolution state machine
const (
	dayThreshold  = 7 * daySeconds
	hourThreshold = 12 * 3600
)

// edgePercent is how close (in percent of the loaded range) the visible
// window may get to a loaded-range edge before an expansion is triggered
const edgePercent = 10.0

// DefaultDebounce is the quiet interval after the last zoom gesture before
// a re-range is evaluated
const DefaultDebounce = 250 * time.Millisecond

// Range is a span of bucket start epochs, both ends inclusive
type Range struct {
	Begin, End int64
}

// Fraction is the zoom slider's percentage window into the loaded range
type Fraction struct {
	Start, End float64
}

// Controller drives the dataset presented to the chart. Zoom gestures
// update the visible fraction immediately; the loaded range and resolution
// only change after the debounce interval passes without further gestures.
type Controller struct {
	mu      sync.Mutex
	minutes *bucket.Cache
	hours   *bucket.Cache

	loaded      Range
	frac        Fraction
	resolution  Resolution
	dataset     []bucket.Entry
	geoSummary  geo.Summary
	initialized bool

	debounce      *time.Timer
	debounceDelay time.Duration

	subscribers map[int]func()
	nextSubID   int

	now        func() int64
	lowerBound int64
	pageSize   int
	logger     *log.Logger
}

// New creates a controller over the two stored caches and subscribes to
// their state changes
func New(minutes, hours *bucket.Cache) *Controller {
	c := &Controller{
		minutes:       minutes,
		hours:         hours,
		frac:          Fraction{Start: 0, End: 100},
		resolution:    ResolutionMinute,
		debounceDelay: DefaultDebounce,
		subscribers:   make(map[int]func()),
		now:           func() int64 { return time.Now().Unix() },
		pageSize:      bucket.DefaultPageSize,
		logger:        log.Default(),
	}
	c.geoSummary = geo.Summarize(nil, 0, 100)
	minutes.Subscribe(c.refresh)
	hours.Subscribe(c.refresh)
	return c
}

// SetClock replaces the epoch-seconds clock (used by tests)
func (c *Controller) SetClock(now func() int64) {
	if now == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetLowerBound sets the earliest epoch the loaded range may expand to
func (c *Controller) SetLowerBound(epoch int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch < 0 {
		epoch = 0
	}
	c.lowerBound = epoch
}

// SetPageSize sets the bucket count of one expansion page
func (c *Controller) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageSize = n
}

// SetDebounce sets the zoom quiet interval
func (c *Controller) SetDebounce(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debounceDelay = d
}

// SetLogger replaces the error logger
func (c *Controller) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// Subscribe registers a callback invoked after the dataset is republished
func (c *Controller) Subscribe(fn func()) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	c.subscribers[c.nextSubID] = fn
	return c.nextSubID
}

// Unsubscribe removes a previously registered callback
func (c *Controller) Unsubscribe(handle int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, handle)
}

// Load performs the initial re-range over [begin, end] with the slider
// fully open. On failure any previously presented state stays untouched.
func (c *Controller) Load(begin, end int64) {
	c.mu.Lock()
	target := resolutionForWidth(end - begin)
	ok := c.executeRerange(target, Range{Begin: begin, End: end}, false)
	if ok {
		c.frac = Fraction{Start: 0, End: 100}
		c.geoSummary = geo.Summarize(c.dataset, 0, 100)
	}
	subs := c.snapshotSubscribers()
	c.mu.Unlock()
	if ok {
		c.notify(subs)
	}
}

// SetVisibleFraction handles a zoom or pan gesture: the slider tracks the
// gesture immediately, the country summary is recomputed on the spot, and
// the single debounce slot is restarted. Only when the quiet interval
// passes without another gesture is a re-range evaluated.
func (c *Controller) SetVisibleFraction(start, end float64) {
	c.mu.Lock()
	start = clampPct(start)
	end = clampPct(end)
	if end < start {
		end = start
	}
	c.frac = Fraction{Start: start, End: end}
	c.geoSummary = geo.Summarize(c.dataset, start, end)

	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.debounceDelay, c.RerangeNow)
	c.mu.Unlock()
}

// RerangeNow evaluates the re-range decision immediately, bypassing the
// debounce. The debounce timer lands here; tests call it directly.
func (c *Controller) RerangeNow() {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}

	visBegin, visEnd := c.visibleWindow()
	target := resolutionForWidth(visEnd - visBegin)
	span := c.loadedSpan()
	now := c.now()

	request := c.loaded
	needed := false
	switch {
	case c.frac.Start <= edgePercent && c.loaded.Begin > c.lowerBound:
		request.Begin = c.loaded.Begin - int64(c.pageSize)*target.Seconds()
		if request.Begin < c.lowerBound {
			request.Begin = c.lowerBound
		}
		needed = true
	case c.frac.End >= 100-edgePercent && c.loaded.Begin+span < now:
		request.End = c.loaded.End + int64(c.pageSize)*target.Seconds()
		if request.End > now {
			request.End = now
		}
		needed = true
	case target != c.resolution:
		needed = true
	}
	if !needed {
		c.mu.Unlock()
		return
	}

	ok := c.executeRerange(target, request, true)
	subs := c.snapshotSubscribers()
	c.mu.Unlock()
	if ok {
		c.notify(subs)
	}
}

// executeRerange queries the backing cache for the requested range and
// republishes the dataset. With remap set, the absolute window the user was
// looking at is preserved across the change. On any failure the previously
// presented state stays untouched and false is returned. Caller holds the
// lock.
func (c *Controller) executeRerange(target Resolution, request Range, remap bool) bool {
	oldVisBegin, oldVisEnd := c.visibleWindow()
	now := c.now()

	if remap && (target == ResolutionMinute || target == ResolutionHour) {
		// A range disproportionately larger than what is on screen is
		// shrunk to the visible window padded by one page each side
		pageSec := int64(c.pageSize) * target.Seconds()
		visWidth := oldVisEnd - oldVisBegin
		reqWidth := request.End - request.Begin
		if reqWidth > 3*visWidth && reqWidth > 3*pageSec {
			request.Begin = oldVisBegin - pageSec
			request.End = oldVisEnd + pageSec
		}
	}
	if request.Begin < c.lowerBound {
		request.Begin = c.lowerBound
	}
	if request.End > now {
		request.End = now
	}

	var entries []bucket.Entry
	switch target {
	case ResolutionDay:
		hourly := c.hours.FetchRange(request.Begin, request.End)
		entries = foldDays(hourly)
		if len(entries) == 0 {
			c.logger.Printf("viewport: no complete day in [%d, %d], keeping previous view", request.Begin, request.End)
			return false
		}
	case ResolutionHour:
		entries = c.hours.FetchRange(request.Begin, request.End)
	default:
		entries = c.minutes.FetchRange(request.Begin, request.End)
	}
	if len(entries) == 0 {
		c.logger.Printf("viewport: empty dataset for [%d, %d] at %s, keeping previous view", request.Begin, request.End, target)
		return false
	}

	c.dataset = entries
	c.resolution = target
	c.loaded = Range{Begin: entries[0].Epoch, End: entries[len(entries)-1].Epoch}
	c.initialized = true

	if remap {
		// Keep the same absolute window on screen across the re-range
		c.frac = c.remapFraction(oldVisBegin, oldVisEnd)
	}
	c.geoSummary = geo.Summarize(c.dataset, c.frac.Start, c.frac.End)
	return true
}

// refresh rebuilds the dataset over the unchanged loaded range when a cache
// reports new data
func (c *Controller) refresh() {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}

	var entries []bucket.Entry
	switch c.resolution {
	case ResolutionDay:
		hourly := c.hours.FetchRange(c.loaded.Begin, c.loaded.End+daySeconds-bucket.ResolutionHour)
		entries = foldDays(hourly)
	case ResolutionHour:
		entries = c.hours.FetchRange(c.loaded.Begin, c.loaded.End)
	default:
		entries = c.minutes.FetchRange(c.loaded.Begin, c.loaded.End)
	}
	if len(entries) == 0 {
		c.mu.Unlock()
		return
	}
	c.dataset = entries
	c.geoSummary = geo.Summarize(c.dataset, c.frac.Start, c.frac.End)
	subs := c.snapshotSubscribers()
	c.mu.Unlock()
	c.notify(subs)
}

// remapFraction maps an absolute time window onto the current loaded range.
// Caller holds the lock.
func (c *Controller) remapFraction(visBegin, visEnd int64) Fraction {
	span := c.loadedSpan()
	if span <= 0 {
		return Fraction{Start: 0, End: 100}
	}
	start := float64(visBegin-c.loaded.Begin) / float64(span) * 100
	end := float64(visEnd-c.loaded.Begin) / float64(span) * 100
	start = clampPct(start)
	end = clampPct(end)
	if end < start {
		end = start
	}
	return Fraction{Start: start, End: end}
}

// visibleWindow returns the absolute bounds the slider selects. Caller
// holds the lock.
func (c *Controller) visibleWindow() (int64, int64) {
	span := c.loadedSpan()
	begin := c.loaded.Begin + int64(float64(span)*c.frac.Start/100)
	end := c.loaded.Begin + int64(float64(span)*c.frac.End/100)
	return begin, end
}

// loadedSpan is the loaded range's width in seconds, including the width of
// the last bucket. Caller holds the lock.
func (c *Controller) loadedSpan() int64 {
	return c.loaded.End + c.resolution.Seconds() - c.loaded.Begin
}

func (c *Controller) snapshotSubscribers() []func() {
	subs := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func (c *Controller) notify(subs []func()) {
	for _, fn := range subs {
		fn()
	}
}

// Dataset returns the currently presented entries
func (c *Controller) Dataset() []bucket.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bucket.Entry, len(c.dataset))
	copy(out, c.dataset)
	return out
}

// VisibleFraction returns the slider's percentage window
func (c *Controller) VisibleFraction() Fraction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frac
}

// LoadedRange returns the span of bucket starts currently materialized
func (c *Controller) LoadedRange() Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Resolution returns the active resolution
func (c *Controller) Resolution() Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolution
}

// GeoSummary returns the country summary of the visible slice
func (c *Controller) GeoSummary() geo.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geoSummary
}

// VisibleWindow returns the absolute epoch bounds the slider selects
func (c *Controller) VisibleWindow() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleWindow()
}

func resolutionForWidth(width int64) Resolution {
	switch {
	case width > dayThreshold:
		return ResolutionDay
	case width > hourThreshold:
		return ResolutionHour
	default:
		return ResolutionMinute
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
