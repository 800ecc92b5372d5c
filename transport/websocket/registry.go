package websocket

import "sort"

// Registry holds the bidirectional indices between live connections, player
// identities, and room membership. The three maps must stay mutually
// consistent: a player listed under a room always has a live connection
// whose room binding matches.
//
// Registry has no lock of its own; every method runs inside a hub handler
// turn, which serializes access.
type Registry struct {
	conns       map[*Conn]struct{}
	byPlayer    map[string]*Conn
	playerRoom  map[string]string
	roomMembers map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:       make(map[*Conn]struct{}),
		byPlayer:    make(map[string]*Conn),
		playerRoom:  make(map[string]string),
		roomMembers: make(map[string]map[string]struct{}),
	}
}

// Register tracks a freshly upgraded, not-yet-bound connection.
func (r *Registry) Register(c *Conn) {
	r.conns[c] = struct{}{}
}

// Bind indexes a connection under a player and room. Rebinding an existing
// player replaces the previous connection entry; the superseded socket is
// left for its own close handler rather than force-closed, so no frames are
// dropped mid-handshake.
func (r *Registry) Bind(playerID, roomID string, c *Conn) {
	if prevRoom, ok := r.playerRoom[playerID]; ok && prevRoom != roomID {
		r.removeMember(prevRoom, playerID)
	}

	c.playerID = playerID
	c.roomID = roomID
	r.conns[c] = struct{}{}
	r.byPlayer[playerID] = c
	r.playerRoom[playerID] = roomID
	members, ok := r.roomMembers[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.roomMembers[roomID] = members
	}
	members[playerID] = struct{}{}
}

// Unbind removes a player from all three indices and returns the connection
// that was bound, if any.
func (r *Registry) Unbind(playerID string) (*Conn, bool) {
	c, ok := r.byPlayer[playerID]
	if roomID, bound := r.playerRoom[playerID]; bound {
		r.removeMember(roomID, playerID)
	}
	delete(r.byPlayer, playerID)
	delete(r.playerRoom, playerID)
	if ok {
		c.playerID = ""
		c.roomID = ""
	}
	return c, ok
}

// Remove drops a connection from tracking. If the connection is still the
// bound one for its player, the player is unbound too; a connection that was
// superseded by a rebind leaves the indices untouched.
func (r *Registry) Remove(c *Conn) {
	delete(r.conns, c)
	if c.playerID != "" && r.byPlayer[c.playerID] == c {
		r.Unbind(c.playerID)
	}
}

// Connection returns the live connection bound to a player.
func (r *Registry) Connection(playerID string) (*Conn, bool) {
	c, ok := r.byPlayer[playerID]
	return c, ok
}

// RoomOf returns the room a player is bound to.
func (r *Registry) RoomOf(playerID string) (string, bool) {
	roomID, ok := r.playerRoom[playerID]
	return roomID, ok
}

// MembersInRoom returns the player IDs bound under a room, sorted for
// deterministic iteration.
func (r *Registry) MembersInRoom(roomID string) []string {
	members := r.roomMembers[roomID]
	out := make([]string, 0, len(members))
	for playerID := range members {
		out = append(out, playerID)
	}
	sort.Strings(out)
	return out
}

// ConnectionsInRoom returns the live connections bound under a room.
func (r *Registry) ConnectionsInRoom(roomID string) []*Conn {
	members := r.roomMembers[roomID]
	out := make([]*Conn, 0, len(members))
	for playerID := range members {
		if c, ok := r.byPlayer[playerID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// CountAll returns the number of tracked connections, bound or not.
func (r *Registry) CountAll() int {
	return len(r.conns)
}

// RoomIDs lists the rooms that currently have at least one bound connection.
func (r *Registry) RoomIDs() []string {
	out := make([]string, 0, len(r.roomMembers))
	for roomID := range r.roomMembers {
		out = append(out, roomID)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) removeMember(roomID, playerID string) {
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, playerID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}
