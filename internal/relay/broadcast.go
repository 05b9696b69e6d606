package relay

import (
	"log/slog"

	"github.com/Bisw0319/HippoChat/pkg/metrics"
)

// Forwarder mirrors room traffic to relay instances outside this process.
type Forwarder interface {
	Forward(roomID string, payload []byte)
}

// Broadcaster fans a payload out to the members of a room. Members whose
// delivery is not possible are pruned from the room and unbound; this is
// the sole self-healing path for half-dead connections.
type Broadcaster struct {
	reg *ConnectionRegistry
	log *slog.Logger
	fw  Forwarder // optional
}

func NewBroadcaster(reg *ConnectionRegistry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, log: log}
}

// Broadcast delivers payload to every member of room except exclude, then
// mirrors it through the forwarder when one is set. Returns the local
// delivered count; failures never propagate to the caller.
func (b *Broadcaster) Broadcast(room *Room, payload []byte, exclude Peer) int {
	n := b.fanOut(room, payload, exclude)
	if b.fw != nil {
		b.fw.Forward(room.ID, payload)
	}
	return n
}

// fanOut is the local delivery pass. Sends are non-blocking enqueues;
// each member's write pump drains in FIFO order, so a member sees
// broadcasts in the order they were issued for its room.
func (b *Broadcaster) fanOut(room *Room, payload []byte, exclude Peer) int {
	var failed []Peer
	delivered := 0
	for p := range room.members {
		if p == exclude {
			continue
		}
		if !p.Open() || !p.TrySend(payload) {
			failed = append(failed, p)
			continue
		}
		delivered++
	}

	for _, p := range failed {
		room.remove(p)
		b.reg.Unbind(p)
		metrics.DeliveryFailures.Inc()
		b.log.Warn("room.member.pruned", "room", room.ID, "conn", p.ID())
	}
	return delivered
}
