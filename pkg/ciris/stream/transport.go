package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// streamPath is the fixed path suffix of the streaming endpoint.
const streamPath = "/v1/stream"

// Conn is one established message-oriented, full-duplex connection to the
// event stream.
type Conn interface {
	// ReadMessage blocks until the next inbound frame arrives.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one outbound frame. Implementations must be safe
	// for concurrent use.
	WriteMessage(data []byte) error

	// Close tears the connection down, unblocking any pending read.
	Close() error
}

// Dialer establishes stream connections. The default dialer speaks
// WebSocket; tests substitute a scripted implementation so reconnection
// logic runs without real sockets.
type Dialer interface {
	DialStream(ctx context.Context, url string, header http.Header) (Conn, error)
}

// wsDialer is the production Dialer backed by gorilla/websocket.
type wsDialer struct {
	handshakeTimeout time.Duration
}

func (d *wsDialer) DialStream(ctx context.Context, rawURL string, header http.Header) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("stream: authentication rejected (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("stream: dial %s: %w", rawURL, err)
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts *websocket.Conn to Conn. gorilla allows only one concurrent
// writer, so writes are serialized here; that also keeps control frames FIFO
// relative to each other.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// EndpointURL derives the streaming endpoint from an API base URL: the
// scheme is upgraded to its websocket equivalent and the fixed /v1/stream
// suffix is appended if not already present.
func EndpointURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("stream: parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("stream: unsupported scheme %q in base url %s", u.Scheme, base)
	}
	if !strings.HasSuffix(u.Path, streamPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + streamPath
	}
	return u.String(), nil
}
