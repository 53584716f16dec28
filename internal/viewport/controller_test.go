package viewport

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/ft8view/ft8view-go/internal/bucket"
)

type recordingFetcher struct {
	calls int
}

func (f *recordingFetcher) fn() bucket.FetchFunc {
	return func(begin, end int64) { f.calls++ }
}

type fixture struct {
	minutes   *bucket.Cache
	hours     *bucket.Cache
	minFetch  *recordingFetcher
	hourFetch *recordingFetcher
	ctrl      *Controller
	now       int64
}

func newFixture(t *testing.T, now int64) *fixture {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	clock := func() int64 { return now }

	mf := &recordingFetcher{}
	hf := &recordingFetcher{}
	minutes := bucket.New(bucket.ResolutionMinute, mf.fn())
	hours := bucket.New(bucket.ResolutionHour, hf.fn())
	for _, c := range []*bucket.Cache{minutes, hours} {
		c.SetClock(clock)
		c.SetLogger(quiet)
		c.SetPageSize(1000)
	}

	ctrl := New(minutes, hours)
	ctrl.SetClock(clock)
	ctrl.SetLogger(quiet)
	// Tests drive re-ranging explicitly through RerangeNow
	ctrl.SetDebounce(time.Hour)

	return &fixture{minutes: minutes, hours: hours, minFetch: mf, hourFetch: hf, ctrl: ctrl, now: now}
}

func TestLoadSelectsResolutionByWidth(t *testing.T) {
	now := int64(100 * daySeconds)

	cases := []struct {
		name  string
		width int64
		want  Resolution
	}{
		{"14 day window", 14 * daySeconds, ResolutionDay},
		{"3 day window", 3 * daySeconds, ResolutionHour},
		{"2 hour window", 2 * 3600, ResolutionMinute},
		{"exactly 12 hours", 12 * 3600, ResolutionMinute},
		{"exactly 7 days", 7 * daySeconds, ResolutionHour},
	}
	for _, tc := range cases {
		f := newFixture(t, now)
		f.ctrl.Load(now-tc.width, now)
		if got := f.ctrl.Resolution(); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
		if len(f.ctrl.Dataset()) == 0 {
			t.Errorf("%s: expected a dataset of placeholders", tc.name)
		}
	}
}

func TestLoadDayDatasetFromHourCache(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)

	f.ctrl.Load(now-14*daySeconds, now)
	if f.hourFetch.calls == 0 {
		t.Error("Day resolution must query the hour cache")
	}
	if f.minFetch.calls != 0 {
		t.Error("Day resolution must not touch the minute cache")
	}
	for _, e := range f.ctrl.Dataset() {
		if e.Epoch%daySeconds != 0 {
			t.Errorf("Day bucket %d not aligned to UTC day", e.Epoch)
		}
	}
}

func TestZoomUpdatesFractionImmediately(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.Load(now-24*3600, now)

	res := f.ctrl.Resolution()
	f.ctrl.SetVisibleFraction(40, 60)

	frac := f.ctrl.VisibleFraction()
	if frac.Start != 40 || frac.End != 60 {
		t.Errorf("Fraction should track the gesture, got %+v", frac)
	}
	// No re-range happened yet: the debounce is still pending
	if f.ctrl.Resolution() != res {
		t.Error("Resolution changed before the debounce expired")
	}
}

func TestFractionClamping(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.Load(now-24*3600, now)

	f.ctrl.SetVisibleFraction(-20, 140)
	frac := f.ctrl.VisibleFraction()
	if frac.Start != 0 || frac.End != 100 {
		t.Errorf("Expected clamp to [0, 100], got %+v", frac)
	}

	f.ctrl.SetVisibleFraction(70, 30)
	frac = f.ctrl.VisibleFraction()
	if frac.End < frac.Start {
		t.Errorf("End must not precede start: %+v", frac)
	}
}

func TestRerangeSwitchesToMinuteOnNarrowZoom(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.Load(now-24*3600, now) // hour resolution

	// 10% of 24h = 2.4h visible, below the minute threshold
	f.ctrl.SetVisibleFraction(45, 55)
	f.ctrl.RerangeNow()

	if got := f.ctrl.Resolution(); got != ResolutionMinute {
		t.Fatalf("Expected minute resolution, got %s", got)
	}
	if f.minFetch.calls == 0 {
		t.Error("Minute cache was never queried")
	}
}

func TestRerangeShrinksDisproportionateRequest(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.SetPageSize(60)
	f.ctrl.Load(now-24*3600, now)

	oldBegin, oldEnd := f.ctrl.VisibleWindow()
	_ = oldBegin
	_ = oldEnd

	f.ctrl.SetVisibleFraction(45, 55)
	visBegin, visEnd := f.ctrl.VisibleWindow()
	f.ctrl.RerangeNow()

	// The minute-resolution request would have spanned the whole 24h loaded
	// range; it must have been shrunk to the visible window plus one page
	// (60 minutes) each side.
	loaded := f.ctrl.LoadedRange()
	pad := int64(60 * 60)
	if loaded.Begin < visBegin-pad-60 || loaded.End > visEnd+pad+60 {
		t.Errorf("Request not shrunk: loaded [%d, %d], visible was [%d, %d]", loaded.Begin, loaded.End, visBegin, visEnd)
	}
}

func TestRerangeKeepsAbsoluteWindow(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.SetPageSize(24)
	f.ctrl.Load(now-4*daySeconds, now) // hour resolution

	// A wide visible window keeps the hour resolution and keeps the
	// expanded request proportionate, so no shrink interferes
	f.ctrl.SetVisibleFraction(5, 80)
	visBegin, visEnd := f.ctrl.VisibleWindow()
	f.ctrl.RerangeNow() // left edge within 10%: expands left one page

	loaded := f.ctrl.LoadedRange()
	if loaded.Begin > now-4*daySeconds-24*3600+3600 {
		t.Errorf("Expected left expansion by one 24-bucket page, loaded begins at %d", loaded.Begin)
	}

	newBegin, newEnd := f.ctrl.VisibleWindow()
	tol := int64(3600)
	if abs64(newBegin-visBegin) > tol || abs64(newEnd-visEnd) > tol {
		t.Errorf("Visible window jumped: was [%d, %d], now [%d, %d]", visBegin, visEnd, newBegin, newEnd)
	}
}

func TestRerangeRightEdgeClampedToNow(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.SetPageSize(24)
	f.ctrl.Load(now-5*daySeconds, now-12*3600)

	// One 24-hour page past the right edge would land in the future
	f.ctrl.SetVisibleFraction(60, 95)
	f.ctrl.RerangeNow()

	loaded := f.ctrl.LoadedRange()
	if loaded.End > now {
		t.Errorf("Loaded range extends past now: %d > %d", loaded.End, now)
	}
	if loaded.End <= now-12*3600 {
		t.Errorf("Expected right expansion, loaded ends at %d", loaded.End)
	}
}

func TestRerangeRespectsLowerBound(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	bound := now - 5*daySeconds
	f.ctrl.SetLowerBound(bound)
	f.ctrl.SetPageSize(24)
	f.ctrl.Load(bound, bound+4*daySeconds)

	f.ctrl.SetVisibleFraction(0, 35)
	before := f.ctrl.LoadedRange()
	f.ctrl.RerangeNow()

	loaded := f.ctrl.LoadedRange()
	if loaded.Begin < bound {
		t.Errorf("Loaded range crossed the lower bound: %d < %d", loaded.Begin, bound)
	}
	if loaded.Begin != before.Begin {
		t.Errorf("No expansion expected at the lower bound, begin moved %d -> %d", before.Begin, loaded.Begin)
	}
}

func TestRerangeAbortKeepsPriorState(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.Load(now-2*3600, now) // minute resolution

	before := f.ctrl.Dataset()
	beforeRes := f.ctrl.Resolution()

	// Push the hour cache's lower bound past any day-wide request so the
	// roll-up finds nothing; the re-range must abort without touching the
	// presented state.
	f.hours.SetLowerBound(now)
	f.ctrl.Load(now-14*daySeconds, now)

	if got := f.ctrl.Resolution(); got != beforeRes {
		t.Errorf("Aborted re-range changed resolution to %s", got)
	}
	after := f.ctrl.Dataset()
	if len(after) != len(before) {
		t.Errorf("Aborted re-range changed the dataset: %d vs %d entries", len(before), len(after))
	}
}

func TestRefreshOnFetchCompletion(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)

	published := 0
	f.ctrl.Subscribe(func() { published++ })

	begin := now - 2*3600
	f.ctrl.Load(begin, now)
	for _, e := range f.ctrl.Dataset() {
		if !e.Offline() {
			t.Fatalf("Expected placeholder dataset, bucket %d has total %d", e.Epoch, e.Total)
		}
	}

	key := f.minutes.Align(begin)
	f.minutes.Complete([]bucket.Record{
		{Epoch: key, Total: 6, SNR: -9, Countries: map[string]int{"Japan": 6}},
	})

	found := false
	for _, e := range f.ctrl.Dataset() {
		if e.Epoch == key {
			found = true
			if e.Total != 6 {
				t.Errorf("Dataset not refreshed, bucket %d total %d", key, e.Total)
			}
		}
	}
	if !found {
		t.Fatalf("Bucket %d missing from refreshed dataset", key)
	}
	if published == 0 {
		t.Error("Refresh did not notify controller subscribers")
	}
}

func TestZoomRecomputesGeoSummary(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)

	begin := now - 2*3600
	f.ctrl.Load(begin, now)
	key := f.minutes.Align(begin)
	f.minutes.Complete([]bucket.Record{
		{Epoch: key, Total: 4, SNR: -3, Countries: map[string]int{"Brazil": 4}},
	})

	f.ctrl.SetVisibleFraction(0, 100)
	if got := f.ctrl.GeoSummary().Countries["Brazil"]; got != 4 {
		t.Errorf("Expected Brazil:4 in full window, got %d", got)
	}

	// The first bucket falls out of the visible slice
	f.ctrl.SetVisibleFraction(50, 100)
	if got := f.ctrl.GeoSummary().Countries["Brazil"]; got != 0 {
		t.Errorf("Expected Brazil out of the visible slice, got %d", got)
	}
}

func TestDebounceReplacesPendingTimer(t *testing.T) {
	now := int64(100 * daySeconds)
	f := newFixture(t, now)
	f.ctrl.Load(now-24*3600, now)
	f.ctrl.SetDebounce(20 * time.Millisecond)

	// A burst of gestures; only the last quiet interval may re-range
	for i := 0; i < 5; i++ {
		f.ctrl.SetVisibleFraction(45, 55)
		time.Sleep(2 * time.Millisecond)
	}
	if f.ctrl.Resolution() != ResolutionHour {
		t.Fatal("Re-range ran before the quiet interval elapsed")
	}

	deadline := time.Now().Add(time.Second)
	for f.ctrl.Resolution() != ResolutionMinute {
		if time.Now().After(deadline) {
			t.Fatal("Debounced re-range never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
