// Package statsapi is the HTTP client for the FT8 report server's
// time-bucketed statistics endpoints
package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ft8view/ft8view-go/internal/bucket"
)

// Record is one time-bucketed statistics row as served by the report
// server. Minute rows additionally carry the raw message payload and the
// per-caller breakdown; neither is needed for the chart, so they are not
// decoded.
type Record struct {
	CTime     int64          `json:"ctime"`
	Monitor   string         `json:"monitor"`
	Band      string         `json:"band"`
	Total     int            `json:"total"`
	SNR       float64        `json:"snr"`
	Countries map[string]int `json:"countries"`
	CQZones   map[string]int `json:"cqs"`
}

// Bucket converts a server record into a cache record
func (r Record) Bucket() bucket.Record {
	return bucket.Record{
		Epoch:     r.CTime,
		Total:     r.Total,
		SNR:       r.SNR,
		Countries: r.Countries,
	}
}

// Client queries one monitor/band pair on a report server
type Client struct {
	baseURL string
	monitor string
	band    string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given server and monitor/band pair
func NewClient(baseURL, monitor, band string) *Client {
	return &Client{
		baseURL: baseURL,
		monitor: monitor,
		band:    band,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the access token appended to requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// SetHTTPClient replaces the underlying HTTP client (used by tests)
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// Minutes fetches minute-granularity records for [begin, end]
func (c *Client) Minutes(ctx context.Context, begin, end int64) ([]Record, error) {
	return c.get(ctx, "/minutes", begin, end)
}

// Hours fetches hour-granularity records for [begin, end]
func (c *Client) Hours(ctx context.Context, begin, end int64) ([]Record, error) {
	return c.get(ctx, "/hours", begin, end)
}

func (c *Client) get(ctx context.Context, route string, begin, end int64) ([]Record, error) {
	q := url.Values{}
	q.Set("id", c.monitor)
	q.Set("band", c.band)
	q.Set("begin", fmt.Sprintf("%d", begin))
	q.Set("end", fmt.Sprintf("%d", end))
	if c.token != "" {
		q.Set("token", c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("fetch %s: server returned %d: %s", route, resp.StatusCode, body)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", route, err)
	}
	return records, nil
}

// MinutesFetcher returns a fetch function that resolves against the minutes
// endpoint and delivers the result back into cache. The request runs on its
// own goroutine; the cache is called back exactly once.
func (c *Client) MinutesFetcher(cache *bucket.Cache) bucket.FetchFunc {
	return c.fetcher(cache, c.Minutes)
}

// HoursFetcher returns a fetch function resolving against the hours endpoint
func (c *Client) HoursFetcher(cache *bucket.Cache) bucket.FetchFunc {
	return c.fetcher(cache, c.Hours)
}

func (c *Client) fetcher(cache *bucket.Cache, query func(context.Context, int64, int64) ([]Record, error)) bucket.FetchFunc {
	return func(begin, end int64) {
		go func() {
			records, err := query(context.Background(), begin, end)
			if err != nil {
				cache.Fail(err)
				return
			}
			out := make([]bucket.Record, 0, len(records))
			for _, r := range records {
				out = append(out, r.Bucket())
			}
			cache.Complete(out)
		}()
	}
}
