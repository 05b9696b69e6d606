package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/Bisw0319/HippoChat/pkg/metrics"
)

// Reaper periodically deletes rooms whose member set is empty. Normal
// leave/disconnect handling empties rooms but never frees them, so the
// sweep bounds how long an empty room lingers to one interval.
type Reaper struct {
	relay *Relay
	every time.Duration
	log   *slog.Logger
}

func NewReaper(relay *Relay, every time.Duration, log *slog.Logger) *Reaper {
	if every <= 0 {
		every = 30 * time.Second
	}
	return &Reaper{relay: relay, every: every, log: log}
}

// Run sweeps on a fixed interval until ctx is cancelled
func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// Sweep runs one pass, logging aggregate room/connection counts
func (r *Reaper) Sweep() {
	reaped, rooms, bound := r.relay.SweepEmptyRooms()
	metrics.RoomsOpen.Set(float64(rooms))
	if reaped > 0 {
		metrics.RoomsReaped.Add(float64(reaped))
		r.log.Info("reaper.sweep", "reaped", reaped, "rooms", rooms, "connections", bound)
		return
	}
	r.log.Debug("reaper.sweep", "rooms", rooms, "connections", bound)
}
