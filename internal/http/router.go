package httpx

import (
	"log/slog"
	"net/http"

	"github.com/Bisw0319/HippoChat/internal/app"
	"github.com/Bisw0319/HippoChat/internal/relay"
	"github.com/Bisw0319/HippoChat/internal/ws"
	"github.com/Bisw0319/HippoChat/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, rl *relay.Relay) http.Handler {
	mw := NewMiddleware(cfg)
	api := &StatusAPI{Relay: rl, Conns: hub}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Status API
	mux.Handle("GET /api/status", http.HandlerFunc(api.Status))
	mux.Handle("GET /api/room-code", http.HandlerFunc(api.RoomCode))

	return mw.Wrap(mux) // CORS + rate limit applied globally
}
