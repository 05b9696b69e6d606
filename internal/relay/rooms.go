package relay

// Room is one chat session: a set of member connections with unique
// display names, plus the name of whoever created it.
type Room struct {
	ID      string
	Creator string          // recorded at creation, never overwritten
	members map[Peer]string // member -> display name
}

func newRoom(id, creator string) *Room {
	return &Room{ID: id, Creator: creator, members: map[Peer]string{}}
}

// Size returns the current member count
func (r *Room) Size() int { return len(r.members) }

// Has reports whether p is currently a member
func (r *Room) Has(p Peer) bool {
	_, ok := r.members[p]
	return ok
}

// MemberName returns the display name p holds in this room
func (r *Room) MemberName(p Peer) (string, bool) {
	name, ok := r.members[p]
	return name, ok
}

// NameInUse reports whether name belongs to a member other than except.
// The requesting connection is excluded so a member can re-send its own
// name without tripping the collision check.
func (r *Room) NameInUse(name string, except Peer) bool {
	for p, n := range r.members {
		if p == except {
			continue
		}
		if n == name {
			return true
		}
	}
	return false
}

func (r *Room) add(p Peer, name string) { r.members[p] = name }
func (r *Room) remove(p Peer)           { delete(r.members, p) }

// RoomTable owns the id → room map. It does no locking of its own; the
// relay serializes every access behind its mutex.
type RoomTable struct {
	rooms map[string]*Room
}

func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: map[string]*Room{}}
}

// Ensure returns the room for id, creating an empty one with creator as
// its recorded creator if absent. An existing room keeps its creator.
func (t *RoomTable) Ensure(id, creator string) *Room {
	rm := t.rooms[id]
	if rm == nil {
		rm = newRoom(id, creator)
		t.rooms[id] = rm
	}
	return rm
}

// Get looks up a room by id
func (t *RoomTable) Get(id string) (*Room, bool) {
	rm, ok := t.rooms[id]
	return rm, ok
}

// Delete removes a room and its creator record. Only called once the
// member set has been observed empty.
func (t *RoomTable) Delete(id string) { delete(t.rooms, id) }

// Len returns the number of live rooms
func (t *RoomTable) Len() int { return len(t.rooms) }
