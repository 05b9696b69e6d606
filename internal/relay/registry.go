package relay

// Peer is one live client connection as the relay sees it. The transport
// owns the connection; the relay only keeps these references and compares
// them by identity.
type Peer interface {
	// ID identifies the connection in logs
	ID() string
	// TrySend enqueues payload without blocking. False means the peer is
	// closed or its outbound queue is full.
	TrySend(payload []byte) bool
	// Open reports whether the connection can still be written to
	Open() bool
}

type binding struct {
	roomID string
	name   string
}

// ConnectionRegistry is the side table tracking which room and display
// name each connection currently holds. It must always agree with the
// room member sets; the relay mutates both together under one mutex.
type ConnectionRegistry struct {
	byPeer map[Peer]binding
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{byPeer: map[Peer]binding{}}
}

// Bind records p's room and name, replacing any prior binding. Callers
// unwind the previous room membership first.
func (c *ConnectionRegistry) Bind(p Peer, roomID, name string) {
	c.byPeer[p] = binding{roomID: roomID, name: name}
}

// Unbind clears p's association. No-op when p is not bound.
func (c *ConnectionRegistry) Unbind(p Peer) { delete(c.byPeer, p) }

// RoomOf returns the room p is bound to
func (c *ConnectionRegistry) RoomOf(p Peer) (string, bool) {
	b, ok := c.byPeer[p]
	return b.roomID, ok
}

// NameOf returns the display name p is bound under
func (c *ConnectionRegistry) NameOf(p Peer) (string, bool) {
	b, ok := c.byPeer[p]
	if !ok || b.name == "" {
		return "", false
	}
	return b.name, true
}

// Len returns the number of bound connections
func (c *ConnectionRegistry) Len() int { return len(c.byPeer) }
