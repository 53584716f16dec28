// Package live provides the websocket client for live minute updates
package live

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ft8view/ft8view-go/internal/statsapi"
)

// MessageType identifies a live feed message
type MessageType string

const (
	MinuteRecord   MessageType = "minute:record"
	MinuteSnapshot MessageType = "minute:snapshot"
)

// Message is one websocket frame from the live feed
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ClientState represents the connection state
type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
)

// Client streams freshly aggregated minute records for a monitor/band pair.
// It keeps the right edge of the chart current without polling; records are
// delivered on a buffered channel and a full channel drops frames (the next
// poll or fetch heals any gap).
type Client struct {
	serverURL      string
	monitor        string
	band           string
	token          string
	reconnectDelay time.Duration
	state          ClientState
	mu             sync.RWMutex
	stopCh         chan struct{}
	recordCh       chan statsapi.Record
}

// NewClient creates a live feed client. serverURL is the report server's
// base HTTP URL; the websocket endpoint is derived from it.
func NewClient(serverURL, monitor, band string, reconnectDelay int) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 2
	}
	return &Client{
		serverURL:      serverURL,
		monitor:        monitor,
		band:           band,
		reconnectDelay: time.Duration(reconnectDelay) * time.Second,
		state:          StateDisconnected,
		stopCh:         make(chan struct{}),
		recordCh:       make(chan statsapi.Record, 100),
	}
}

// SetToken sets the access token sent with the subscribe message
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// State returns the current connection state
func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Records returns the channel of live minute records
func (c *Client) Records() <-chan statsapi.Record {
	return c.recordCh
}

// Start begins the connection goroutine
func (c *Client) Start() {
	go c.run()
}

// Stop closes the connection and ends reconnection attempts
func (c *Client) Stop() {
	close(c.stopCh)
}

func (c *Client) setState(state ClientState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Client) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// wsURL derives the websocket endpoint from the server's base URL
func (c *Client) wsURL() string {
	endpoint := strings.TrimSuffix(c.serverURL, "/") + "/live"
	if strings.HasPrefix(endpoint, "https://") {
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	} else if strings.HasPrefix(endpoint, "http://") {
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	q := url.Values{}
	q.Set("id", c.monitor)
	q.Set("band", c.band)
	return endpoint + "?" + q.Encode()
}

func (c *Client) run() {
	endpoint := c.wsURL()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.setState(StateConnecting)

		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(endpoint, nil)
		if err != nil {
			c.setState(StateDisconnected)
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.reconnectDelay):
				continue
			}
		}

		subscribe := map[string]interface{}{
			"action": "subscribe",
			"id":     c.monitor,
			"band":   c.band,
		}
		if token := c.getToken(); token != "" {
			subscribe["token"] = token
		}
		if err := conn.WriteJSON(subscribe); err != nil {
			conn.Close()
			continue
		}

		c.setState(StateConnected)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				conn.Close()
				c.setState(StateDisconnected)
				break
			}

			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			c.dispatch(msg)
		}

		select {
		case <-c.stopCh:
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case string(MinuteRecord):
		var rec statsapi.Record
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			return
		}
		c.deliver(rec)
	case string(MinuteSnapshot):
		var recs []statsapi.Record
		if err := json.Unmarshal(msg.Data, &recs); err != nil {
			return
		}
		for _, rec := range recs {
			c.deliver(rec)
		}
	}
}

func (c *Client) deliver(rec statsapi.Record) {
	select {
	case c.recordCh <- rec:
	default:
		// Channel full, drop the frame
	}
}
