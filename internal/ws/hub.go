package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"nhooyr.io/websocket"

	"github.com/Bisw0319/HippoChat/internal/app"
	"github.com/Bisw0319/HippoChat/internal/relay"
	"github.com/Bisw0319/HippoChat/pkg/metrics"
)

// Hub accepts WebSocket clients and pumps their frames into the relay.
// Room membership lives in the relay; the hub only tracks raw
// connections so it can count and close them.
type Hub struct {
	log   *slog.Logger
	relay *relay.Relay
	cfg   app.Config

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// NewHub sets up the hub over a relay with the server config
func NewHub(logger *slog.Logger, rl *relay.Relay, cfg app.Config) *Hub {
	return &Hub{log: logger, relay: rl, cfg: cfg, conns: map[*Conn]struct{}{}}
}

// ServeWS handles a new /ws connection for its whole lifetime
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := Accept(w, r, h.cfg.CORSAllow)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}
	if h.cfg.ReadLimitBytes > 0 {
		conn.SetReadLimit(h.cfg.ReadLimitBytes)
	}

	c := NewConn(conn)
	h.add(c)
	h.log.Debug("ws.connected", "conn", c.ID(), "remote", r.RemoteAddr)

	// Outbound writer
	go c.WriteLoop(ctx)

	// Inbound reader: every frame is one protocol turn
	for {
		payload, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.relay.HandleMessage(c, payload)
	}

	h.relay.HandleDisconnect(c)
	h.remove(c)
	c.Close(websocket.StatusNormalClosure, "bye")
	h.log.Debug("ws.closed", "conn", c.ID())
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown tells every client the server is going away and waits for the
// read loops to unwind. The close handshake can stall on a peer that
// never answers, so the closes run concurrently off the hub lock, and
// whatever is still open when ctx expires is torn down without a
// handshake.
func (h *Hub) Shutdown(ctx context.Context) {
	for _, c := range h.snapshot() {
		go c.Close(websocket.StatusGoingAway, "server shutting down")
	}

	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		if h.Count() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			h.closeStragglers()
			return
		case <-t.C:
		}
	}
}

// closeStragglers force-closes what is left and gives the read loops a
// short window to observe the dead sockets and deregister.
func (h *Hub) closeStragglers() {
	for _, c := range h.snapshot() {
		c.CloseNow()
	}

	deadline := time.NewTimer(time.Second)
	defer deadline.Stop()
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for h.Count() > 0 {
		select {
		case <-deadline.C:
			return
		case <-t.C:
		}
	}
}

func (h *Hub) snapshot() []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	metrics.ConnectionsOpen.Inc()
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	metrics.ConnectionsOpen.Dec()
}
