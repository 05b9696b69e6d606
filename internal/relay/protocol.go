package relay

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/Bisw0319/HippoChat/pkg/metrics"
)

// Relay is the session protocol. It owns the room table and connection
// registry and dispatches every inbound message by kind. One mutex
// serializes all message-handling turns and reaper sweeps, so the
// check-then-act sequences inside a handler are atomic with respect to
// other connections.
type Relay struct {
	mu    sync.Mutex
	log   *slog.Logger
	rooms *RoomTable
	reg   *ConnectionRegistry
	bc    *Broadcaster
}

func New(log *slog.Logger) *Relay {
	reg := NewConnectionRegistry()
	return &Relay{
		log:   log,
		rooms: NewRoomTable(),
		reg:   reg,
		bc:    NewBroadcaster(reg, log),
	}
}

// SetForwarder mirrors all room broadcasts through fw. Call before serving.
func (rl *Relay) SetForwarder(fw Forwarder) {
	rl.mu.Lock()
	rl.bc.fw = fw
	rl.mu.Unlock()
}

// HandleMessage runs one protocol turn for an inbound frame from p.
// Protocol errors are replied to p and never crash the process; a panic
// inside a handler is trapped and logged so the event loop keeps running.
func (rl *Relay) HandleMessage(p Peer, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			rl.log.Error("relay.handler.panic", "conn", p.ID(), "panic", r)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		rl.reply(p, errorEvent("", "Invalid message format"))
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	switch env.Type {
	case TypeCreateRoom:
		rl.createRoom(p, env)
	case TypeJoinRoom:
		rl.joinRoom(p, env)
	case TypeChat:
		rl.chat(p, env)
	case TypeLeaveRoom:
		rl.leaveRoom(p, env)
	case TypePing:
		rl.reply(p, pong())
	default:
		rl.reply(p, errorEvent(env.RoomID, "Unknown message type"))
	}
}

// HandleDisconnect unwinds a connection the transport has lost. No reply
// is sent; the connection is gone.
func (rl *Relay) HandleDisconnect(p Peer) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	roomID, ok := rl.reg.RoomOf(p)
	if !ok {
		return
	}
	name, hasName := rl.reg.NameOf(p)
	rl.reg.Unbind(p)

	room, ok := rl.rooms.Get(roomID)
	if !ok {
		return
	}
	room.remove(p)
	if hasName {
		rl.bc.Broadcast(room, encode(userLeft(roomID, name, room.Size(), "disconnected")), p)
	}
	rl.log.Debug("peer.disconnected", "room", roomID, "user", name, "members", room.Size())
}

func (rl *Relay) createRoom(p Peer, env Envelope) {
	if env.RoomID == "" || env.Username == "" {
		rl.reply(p, errorEvent(env.RoomID, "roomId and username are required"))
		return
	}

	// Creating an existing room seats the caller as a regular member, so
	// the join-side name rule applies. Reject before touching any state.
	room, existed := rl.rooms.Get(env.RoomID)
	if existed && room.NameInUse(env.Username, p) {
		rl.reply(p, joinError(env.RoomID, "Username already taken in this room"))
		return
	}

	// Switching rooms is leave-then-join, even when the previous room is
	// the one being created.
	rl.leaveCurrent(p)

	room = rl.rooms.Ensure(env.RoomID, env.Username)
	if !existed {
		metrics.RoomsOpen.Set(float64(rl.rooms.Len()))
		rl.log.Info("room.created", "room", env.RoomID, "creator", env.Username)
	}
	room.add(p, env.Username)
	rl.reg.Bind(p, env.RoomID, env.Username)

	rl.reply(p, roomCreated(env.RoomID, env.Username))
	rl.bc.Broadcast(room, encode(userJoined(env.RoomID, env.Username, room.Size(), true)), p)
}

func (rl *Relay) joinRoom(p Peer, env Envelope) {
	if env.RoomID == "" || env.Username == "" {
		rl.reply(p, errorEvent(env.RoomID, "roomId and username are required"))
		return
	}

	room, ok := rl.rooms.Get(env.RoomID)
	if !ok {
		rl.reply(p, joinError(env.RoomID, "Room not found"))
		return
	}
	if room.NameInUse(env.Username, p) {
		rl.reply(p, joinError(env.RoomID, "Username already taken in this room"))
		return
	}

	// Leaving the previous room is skipped when it is the target room;
	// re-adding below just re-keys the existing membership.
	if prev, bound := rl.reg.RoomOf(p); bound && prev != env.RoomID {
		rl.leaveCurrent(p)
	}

	room.add(p, env.Username)
	rl.reg.Bind(p, env.RoomID, env.Username)

	// The joiner's confirmation must reach it before peers hear about the
	// join.
	rl.reply(p, joinSuccess(env.RoomID, env.Username, room.Size()))
	rl.bc.Broadcast(room, encode(userJoined(env.RoomID, env.Username, room.Size(), false)), p)
	rl.log.Debug("room.joined", "room", env.RoomID, "user", env.Username, "members", room.Size())
}

func (rl *Relay) chat(p Peer, env Envelope) {
	if env.RoomID == "" || !hasPayload(env.Message) {
		rl.reply(p, errorEvent(env.RoomID, "roomId and message are required"))
		return
	}

	// Membership is re-checked at send time; a stale binding alone is not
	// enough once the room is gone or the member was pruned.
	room, ok := rl.rooms.Get(env.RoomID)
	if !ok || !room.Has(p) {
		rl.reply(p, errorEvent(env.RoomID, "You are not in this room"))
		return
	}

	payload, err := stampServerTime(env.Message, nowMillis())
	if err != nil {
		rl.reply(p, errorEvent(env.RoomID, "Invalid message format"))
		return
	}

	// The sender gets no echo; its client already displayed the message.
	n := rl.bc.Broadcast(room, encode(chatMessage(env.RoomID, payload)), p)
	metrics.MessagesRelayed.Inc()
	rl.log.Debug("chat.relayed", "room", env.RoomID, "delivered", n)
}

func (rl *Relay) leaveRoom(p Peer, env Envelope) {
	roomID := env.RoomID
	if roomID == "" {
		bound, ok := rl.reg.RoomOf(p)
		if !ok {
			return // nothing to leave, no reply defined
		}
		roomID = bound
	}

	if room, ok := rl.rooms.Get(roomID); ok && room.Has(p) {
		name, _ := rl.reg.NameOf(p)
		room.remove(p)
		rl.reg.Unbind(p)
		rl.bc.Broadcast(room, encode(userLeft(roomID, name, room.Size(), "")), p)
		rl.log.Debug("room.left", "room", roomID, "user", name, "members", room.Size())
	} else if bound, isBound := rl.reg.RoomOf(p); isBound && bound == roomID {
		// Binding points at a room that is gone; unwind it.
		rl.reg.Unbind(p)
	}

	rl.reply(p, leaveSuccess(roomID))
}

// leaveCurrent removes p from whatever room it is bound to and tells the
// remaining members. Used when a connection switches rooms.
func (rl *Relay) leaveCurrent(p Peer) {
	roomID, ok := rl.reg.RoomOf(p)
	if !ok {
		return
	}
	name, _ := rl.reg.NameOf(p)
	rl.reg.Unbind(p)

	room, ok := rl.rooms.Get(roomID)
	if !ok || !room.Has(p) {
		return
	}
	room.remove(p)
	rl.bc.Broadcast(room, encode(userLeft(roomID, name, room.Size(), "")), p)
}

// reply sends a direct event to the originating connection. A failed
// direct send is only logged; the disconnect path cleans the peer up.
func (rl *Relay) reply(p Peer, ev ServerEvent) {
	if !p.TrySend(encode(ev)) {
		rl.log.Debug("reply.dropped", "conn", p.ID(), "type", ev.Type)
	}
}

// DeliverLocal fans a bridged payload out to the local members of a room
// without mirroring it back through the forwarder.
func (rl *Relay) DeliverLocal(roomID string, payload []byte) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if room, ok := rl.rooms.Get(roomID); ok {
		rl.bc.fanOut(room, payload, nil)
	}
}

// RoomStatus is one row of the read-only status snapshot.
type RoomStatus struct {
	RoomID           string `json:"roomId"`
	ParticipantCount int    `json:"participantCount"`
	Creator          string `json:"creator"`
}

// Snapshot lists every live room with its member count and creator,
// sorted by room id.
func (rl *Relay) Snapshot() []RoomStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	out := make([]RoomStatus, 0, rl.rooms.Len())
	for _, room := range rl.rooms.rooms {
		out = append(out, RoomStatus{
			RoomID:           room.ID,
			ParticipantCount: room.Size(),
			Creator:          room.Creator,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

// SweepEmptyRooms deletes every room with no members and returns the
// reaped count plus post-sweep room and bound-connection totals.
func (rl *Relay) SweepEmptyRooms() (reaped, rooms, bound int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, room := range rl.rooms.rooms {
		if room.Size() == 0 {
			rl.rooms.Delete(id)
			reaped++
		}
	}
	return reaped, rl.rooms.Len(), rl.reg.Len()
}
