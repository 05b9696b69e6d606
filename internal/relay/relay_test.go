package relay

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRelay() *Relay {
	return New(discardLogger())
}

// arrival records every delivered event across all fake peers in the
// order the sends happened, so tests can assert cross-connection ordering.
type arrival struct {
	peer string
	ev   ServerEvent
}

type eventLog struct {
	entries []arrival
}

// indexOf returns the position of the first event of typ delivered to
// peer at or after from, or -1.
func (l *eventLog) indexOf(peer, typ string, from int) int {
	for i := from; i < len(l.entries); i++ {
		if l.entries[i].peer == peer && l.entries[i].ev.Type == typ {
			return i
		}
	}
	return -1
}

// fakePeer is a scriptable connection: flip refuse or open to simulate a
// half-dead member deterministically.
type fakePeer struct {
	id     string
	open   bool
	refuse bool
	sent   []ServerEvent
	log    *eventLog
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id, open: true}
}

func (p *fakePeer) ID() string { return p.id }
func (p *fakePeer) Open() bool { return p.open }

func (p *fakePeer) TrySend(payload []byte) bool {
	if !p.open || p.refuse {
		return false
	}
	var ev ServerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		panic("fakePeer: undecodable payload: " + err.Error())
	}
	p.sent = append(p.sent, ev)
	if p.log != nil {
		p.log.entries = append(p.log.entries, arrival{peer: p.id, ev: ev})
	}
	return true
}

// last returns the most recent event delivered to p
func (p *fakePeer) last(t *testing.T) ServerEvent {
	t.Helper()
	require.NotEmpty(t, p.sent, "peer %s received nothing", p.id)
	return p.sent[len(p.sent)-1]
}

// types lists the kinds delivered to p in order
func (p *fakePeer) types() []string {
	out := make([]string, len(p.sent))
	for i, ev := range p.sent {
		out[i] = ev.Type
	}
	return out
}

// payloadOf pulls the chat payload object out of a decoded event
func payloadOf(t *testing.T, ev ServerEvent) map[string]any {
	t.Helper()
	m, ok := ev.Message.(map[string]any)
	require.True(t, ok, "event %s carries no payload object", ev.Type)
	return m
}

func send(rl *Relay, p Peer, raw string) {
	rl.HandleMessage(p, []byte(raw))
}

// checkIntegrity asserts that the room member sets and the connection
// registry agree with each other, and that display names are unique
// within every room.
func checkIntegrity(t *testing.T, rl *Relay) {
	t.Helper()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, room := range rl.rooms.rooms {
		seen := map[string]bool{}
		for p, name := range room.members {
			got, ok := rl.reg.RoomOf(p)
			require.True(t, ok, "member %s of room %s has no binding", p.ID(), id)
			require.Equal(t, id, got, "member %s of room %s is bound elsewhere", p.ID(), id)
			require.False(t, seen[name], "display name %q appears twice in room %s", name, id)
			seen[name] = true
		}
	}
	for p, b := range rl.reg.byPeer {
		room, ok := rl.rooms.Get(b.roomID)
		require.True(t, ok, "binding for %s names missing room %s", p.ID(), b.roomID)
		require.True(t, room.Has(p), "binding for %s disagrees with member set of %s", p.ID(), b.roomID)
	}
}
