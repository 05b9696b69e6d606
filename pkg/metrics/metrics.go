package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RoomsOpen tracks rooms currently held in memory
	RoomsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hippochat_rooms_open",
		Help: "Rooms currently held in memory.",
	})

	// ConnectionsOpen tracks live WebSocket connections
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hippochat_connections_open",
		Help: "Open WebSocket connections.",
	})

	// MessagesRelayed counts chat messages fanned out to room members
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hippochat_messages_relayed_total",
		Help: "Chat messages relayed to room members.",
	})

	// DeliveryFailures counts members pruned after a failed send
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hippochat_delivery_failures_total",
		Help: "Members pruned from a room after a failed delivery.",
	})

	// RoomsReaped counts empty rooms deleted by the reaper
	RoomsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hippochat_rooms_reaped_total",
		Help: "Empty rooms deleted by the periodic sweep.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
