// Package bucket provides the windowed time-bucket cache backing the chart
package bucket

import (
	"log"
	"sync"
	"time"
)

// Resolutions of the two stored tiers, in seconds per bucket
const (
	ResolutionMinute int64 = 60
	ResolutionHour   int64 = 3600
)

// DefaultPageSize is the maximum number of buckets a single fetch may span
const DefaultPageSize = 120

// TotalOffline marks a bucket with no data: not yet fetched, or confirmed
// empty by a completed fetch that did not cover it
const TotalOffline = -1

// Entry is one materialized bucket. Countries is replaced wholesale on
// ingest and never mutated afterwards, so returned entries may share it.
type Entry struct {
	Epoch     int64
	Label     string
	Total     int
	SNR       float64
	Countries map[string]int
}

// Offline reports whether the entry carries no usable data
func (e Entry) Offline() bool {
	return e.Total == TotalOffline
}

// Record is a raw server record handed to Complete by a fetcher
type Record struct {
	Epoch     int64
	Total     int
	SNR       float64
	Countries map[string]int
}

// FetchFunc issues one network fetch for the aligned span [begin, end].
// It must return without blocking and eventually call exactly one of
// Complete or Fail on the owning cache.
type FetchFunc func(begin, end int64)

// Cache is a sparse bucket store for a single resolution. Buckets are
// created lazily on first read as pending placeholders and filled in when
// a covering fetch completes; they are never deleted. At most one fetch
// is in flight per cache.
type Cache struct {
	mu         sync.Mutex
	resolution int64
	buckets    map[int64]*Entry
	pending    map[int64]struct{}

	inFlight      bool
	fetchBegin    int64
	fetchEnd      int64
	reqBegin      int64
	reqEnd        int64
	haveRequested bool

	subscribers map[int]func()
	nextSubID   int

	fetch      FetchFunc
	now        func() int64
	pageSize   int
	lowerBound int64
	logger     *log.Logger
}

// New creates a cache for the given resolution (seconds per bucket).
// fetch may be nil and set later with SetFetchFunc; until one is set the
// cache accumulates pending keys without issuing requests.
func New(resolution int64, fetch FetchFunc) *Cache {
	if resolution <= 0 {
		resolution = ResolutionMinute
	}
	return &Cache{
		resolution:  resolution,
		buckets:     make(map[int64]*Entry),
		pending:     make(map[int64]struct{}),
		subscribers: make(map[int]func()),
		fetch:       fetch,
		now:         func() int64 { return time.Now().Unix() },
		pageSize:    DefaultPageSize,
		logger:      log.Default(),
	}
}

// SetFetchFunc replaces the fetch function
func (c *Cache) SetFetchFunc(fetch FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetch = fetch
}

// SetClock replaces the epoch-seconds clock (used by tests)
func (c *Cache) SetClock(now func() int64) {
	if now == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetPageSize updates the per-fetch bucket cap
func (c *Cache) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageSize = n
}

// SetLowerBound sets the earliest epoch the cache will accept requests for
func (c *Cache) SetLowerBound(epoch int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch < 0 {
		epoch = 0
	}
	c.lowerBound = c.align(epoch)
}

// SetLogger replaces the error logger
func (c *Cache) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// Resolution returns the cache's seconds-per-bucket
func (c *Cache) Resolution() int64 {
	return c.resolution
}

func (c *Cache) align(epoch int64) int64 {
	return epoch - epoch%c.resolution
}

// Align truncates an epoch down to this cache's bucket boundary
func (c *Cache) Align(epoch int64) int64 {
	return c.align(epoch)
}

// Label formats a bucket epoch for display (UTC)
func Label(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04")
}

// Subscribe registers a state-change callback and returns its handle.
// Callbacks carry no payload; they mean "re-pull". They are invoked
// synchronously after mutation, in no guaranteed order.
func (c *Cache) Subscribe(fn func()) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	c.subscribers[c.nextSubID] = fn
	return c.nextSubID
}

// Unsubscribe removes a previously registered callback
func (c *Cache) Unsubscribe(handle int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, handle)
}

// FetchRange returns one entry per aligned bucket from begin to end
// inclusive. Buckets not yet in the store are synthesized as pending
// placeholders. The call records the window for coalescing and triggers a
// pending check. Invalid input is logged and yields nil; it never panics
// or returns an error to the caller.
func (c *Cache) FetchRange(begin, end int64) []Entry {
	c.mu.Lock()

	b := c.align(begin)
	e := c.align(end)
	now := c.now()
	if begin < 0 || b > e || b < c.lowerBound || e > now {
		logger := c.logger
		c.mu.Unlock()
		logger.Printf("bucket: invalid range [%d, %d] (res=%d, bound=%d, now=%d)", begin, end, c.resolution, c.lowerBound, now)
		return nil
	}

	out := make([]Entry, 0, (e-b)/c.resolution+1)
	for k := b; k <= e; k += c.resolution {
		entry, ok := c.buckets[k]
		if !ok {
			entry = &Entry{Epoch: k, Label: Label(k), Total: TotalOffline}
			c.buckets[k] = entry
			c.pending[k] = struct{}{}
		}
		out = append(out, *entry)
	}

	c.reqBegin = b
	c.reqEnd = e
	c.haveRequested = true
	c.mu.Unlock()

	c.PendingCheck()
	return out
}

// PendingCheck coalesces the pending keys inside the last-requested window
// into at most one fetch of at most pageSize buckets. It is a no-op while
// a fetch is in flight; callers retry on the next state-change callback.
func (c *Cache) PendingCheck() {
	c.mu.Lock()
	if c.inFlight || !c.haveRequested || c.fetch == nil {
		c.mu.Unlock()
		return
	}

	var lo, hi int64
	found := false
	for k := range c.pending {
		if k < c.reqBegin || k > c.reqEnd {
			continue
		}
		if !found || k < lo {
			lo = k
		}
		if !found || k > hi {
			hi = k
		}
		found = true
	}
	if !found {
		c.mu.Unlock()
		return
	}

	if (hi-lo)/c.resolution+1 > int64(c.pageSize) {
		hi = lo + int64(c.pageSize-1)*c.resolution
	}

	c.inFlight = true
	c.fetchBegin = lo
	c.fetchEnd = hi
	fetch := c.fetch
	c.mu.Unlock()

	fetch(lo, hi)
}

// Complete ingests the response of the in-flight fetch. Records are written
// under their aligned keys; every key in the fetched span left without real
// data becomes an explicit offline entry and leaves the pending set, so a
// partial or empty response still makes progress. Subscribers are notified
// and a new pending check runs.
func (c *Cache) Complete(records []Record) {
	c.mu.Lock()
	if !c.inFlight {
		logger := c.logger
		c.mu.Unlock()
		logger.Printf("bucket: stray fetch completion ignored (res=%d)", c.resolution)
		return
	}

	for _, rec := range records {
		k := c.align(rec.Epoch)
		countries := rec.Countries
		if rec.Total <= 0 {
			countries = nil
		}
		c.buckets[k] = &Entry{
			Epoch:     k,
			Label:     Label(k),
			Total:     rec.Total,
			SNR:       rec.SNR,
			Countries: countries,
		}
		delete(c.pending, k)
	}

	for k := c.fetchBegin; k <= c.fetchEnd; k += c.resolution {
		if _, ok := c.buckets[k]; !ok {
			c.buckets[k] = &Entry{Epoch: k, Label: Label(k), Total: TotalOffline}
		}
		delete(c.pending, k)
	}

	c.inFlight = false
	subs := c.snapshotSubscribers()
	c.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	c.PendingCheck()
}

// Fail records a fetch failure. The in-flight flag is cleared but pending
// keys stay put; a retry happens only on the next FetchRange or
// PendingCheck trigger. There is no scheduled retry.
func (c *Cache) Fail(err error) {
	c.mu.Lock()
	if !c.inFlight {
		logger := c.logger
		c.mu.Unlock()
		logger.Printf("bucket: stray fetch failure ignored (res=%d): %v", c.resolution, err)
		return
	}
	begin, end := c.fetchBegin, c.fetchEnd
	c.inFlight = false
	logger := c.logger
	c.mu.Unlock()

	logger.Printf("bucket: fetch [%d, %d] failed (res=%d): %v", begin, end, c.resolution, err)
}

// Ingest writes a single record outside any fetch cycle, for live-pushed
// data near the right edge of the chart. Subscribers are notified.
func (c *Cache) Ingest(rec Record) {
	c.mu.Lock()
	k := c.align(rec.Epoch)
	countries := rec.Countries
	if rec.Total <= 0 {
		countries = nil
	}
	c.buckets[k] = &Entry{
		Epoch:     k,
		Label:     Label(k),
		Total:     rec.Total,
		SNR:       rec.SNR,
		Countries: countries,
	}
	delete(c.pending, k)
	subs := c.snapshotSubscribers()
	c.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func (c *Cache) snapshotSubscribers() []func() {
	subs := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// Get returns the stored entry for an epoch, aligned down first
func (c *Cache) Get(epoch int64) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.buckets[c.align(epoch)]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Pending reports whether an epoch's bucket is awaiting data
func (c *Cache) Pending(epoch int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[c.align(epoch)]
	return ok
}

// PendingCount returns the number of buckets awaiting data
func (c *Cache) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// InFlight reports whether a fetch is currently outstanding
func (c *Cache) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Size returns the number of materialized buckets
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}
