package ws

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Conn wraps one client WebSocket. Outbound frames go through a buffered
// queue drained by WriteLoop, so enqueueing never blocks the relay; a
// full queue means the client has stopped draining and the send fails.
type Conn struct {
	id  string
	ws  *websocket.Conn
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// Accept upgrades HTTP to websocket. The allowlist holds CORS origins;
// they are reduced to host patterns for the handshake origin check.
func Accept(w http.ResponseWriter, r *http.Request, allow []string) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  originPatterns(allow),
		CompressionMode: websocket.CompressionDisabled,
	})
}

// originPatterns strips schemes off origin URLs ("http://app.test:3000"
// becomes "app.test:3000"); bare hosts and "*" pass through.
func originPatterns(allow []string) []string {
	out := make([]string, 0, len(allow))
	for _, a := range allow {
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, a)
	}
	return out
}

// NewConn wraps an accepted WS connection
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		id:     uuid.NewString(),
		ws:     ws,
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

// ID identifies the connection in logs
func (c *Conn) ID() string { return c.id }

// Open reports whether the connection is still writable
func (c *Conn) Open() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

// TrySend enqueues an outbound frame without blocking. False means the
// connection is closed or its queue is full.
func (c *Conn) TrySend(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.out <- payload:
		return true
	default:
		return false
	}
}

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return []byte(data), true
		}
	}
}

// WriteLoop sends outbound messages + periodic pings
// Exits when ctx is cancelled or the connection closes
func (c *Conn) WriteLoop(ctx context.Context) {
	p := 20 * time.Second
	t := time.NewTicker(p)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			if err := c.ws.Write(ctx, websocket.MessageText, b); err != nil {
				c.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close marks the connection closed (later sends fail fast) and starts
// the close handshake, which can block waiting for the peer's echo.
func (c *Conn) Close(code websocket.StatusCode, reason string) {
	c.markClosed()
	_ = c.ws.Close(code, reason)
}

// CloseNow tears the connection down without a close handshake
func (c *Conn) CloseNow() {
	c.markClosed()
	_ = c.ws.CloseNow()
}

func (c *Conn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}
