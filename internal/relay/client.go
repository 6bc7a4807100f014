// Package relay is the concrete WebSocket transport behind the signing
// package's RelayHandle interface: one connection per relay URL, NIP-01
// REQ/EVENT/CLOSE framing, and the subscription bookkeeping the
// active-client cache wires up per active identity.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/signing"
)

const (
	ReadWriteRead  = "read"
	ReadWriteWrite = "write"
	ReadWriteBoth  = "both"

	defaultDialTimeout = 10 * time.Second
)

// Event is a NIP-01 event. The fields from PubKey to Content appear in the
// order of the canonical serialization that computeID hashes.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Filter is a NIP-01 REQ filter.
type Filter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []int    `json:"kinds,omitempty"`
	PTag    []string `json:"#p,omitempty"`
	Since   *int64   `json:"since,omitempty"`
	Until   *int64   `json:"until,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Client manages one connection to one relay URL.
type Client struct {
	mu        sync.Mutex
	url       string
	readWrite string
	logger    *slog.Logger

	conn   *websocket.Conn
	status string // "disconnected", "connecting", "connected", "error"
}

var _ signing.RelayHandle = (*Client)(nil)

// New builds a Client bound to url with the given read/write mode
// ("read", "write", or "both"); it does not dial until Connect is called.
func New(url, readWrite string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if readWrite == "" {
		readWrite = ReadWriteBoth
	}
	return &Client{url: url, readWrite: readWrite, logger: logger, status: "disconnected"}
}

func (c *Client) URL() string       { return c.url }
func (c *Client) ReadWrite() string { return c.readWrite }

func (c *Client) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect dials the relay. Callers treat this as fire-and-forget: they
// log failures and keep the client rather than failing the whole build.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.status = "connecting"
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.status = "error"
		c.mu.Unlock()
		return apperr.Wrap(apperr.Relay, fmt.Sprintf("connecting to %s", c.url), err)
	}

	c.mu.Lock()
	c.conn = conn
	c.status = "connected"
	c.mu.Unlock()
	return nil
}

// Disconnect closes the connection. force drops it immediately instead of
// sending a graceful WebSocket close frame first.
func (c *Client) Disconnect(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.status = "disconnected"
		return nil
	}

	if !force {
		deadline := time.Now().Add(2 * time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}
	err := c.conn.Close()
	c.conn = nil
	c.status = "disconnected"
	if err != nil {
		return apperr.Wrap(apperr.Relay, "closing relay connection", err)
	}
	return nil
}

// Publish sends an EVENT message and does not wait for the relay's OK.
func (c *Client) Publish(event Event) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return apperr.New(apperr.Relay, "not connected")
	}

	msg := []any{"EVENT", event}
	payload, err := json.Marshal(msg)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshaling EVENT message", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return apperr.Wrap(apperr.PublishFailed, "writing EVENT message", err)
	}
	return nil
}

// Subscribe opens a REQ with a fresh subscription id and returns that id.
// Callers are responsible for reading frames with ReadMessage until
// EOSE/CLOSED and eventually calling Unsubscribe.
func (c *Client) Subscribe(filter Filter) (subID string, err error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return "", apperr.New(apperr.Relay, "not connected")
	}

	subID = uuid.NewString()
	msg := []any{"REQ", subID, filter}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "marshaling REQ message", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return "", apperr.Wrap(apperr.Relay, "writing REQ message", err)
	}
	return subID, nil
}

// Unsubscribe sends a CLOSE for subID.
func (c *Client) Unsubscribe(subID string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	payload, err := json.Marshal([]any{"CLOSE", subID})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshaling CLOSE message", err)
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// SetReadDeadline bounds the next ReadMessage call, letting callers apply
// a per-request timeout_secs without blocking indefinitely on a relay
// that never responds.
func (c *Client) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return apperr.New(apperr.Relay, "not connected")
	}
	return conn.SetReadDeadline(t)
}

// ReadMessage reads one raw frame. Intended to be called in a loop from a
// per-connection goroutine; returns the decoded top-level array.
func (c *Client) ReadMessage() ([]json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, apperr.New(apperr.Relay, "not connected")
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		c.logger.Warn("relay read failed", "url", c.url, "error", err)
		return nil, apperr.Wrap(apperr.Relay, "reading relay message", err)
	}
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "decoding relay message", err)
	}
	return frame, nil
}
