package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15"

	"partyhub/game"
	"partyhub/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Hub is the coordination engine instance: it owns the connection registry,
// the state table, and the lobby subscriber set, and serializes every
// mutation of them behind its mutex. One hub owns the authoritative
// in-memory state for every room it has a handler for; running two hubs
// against the same store for the same room is unsupported.
type Hub struct {
	mu       sync.Mutex
	registry *Registry
	states   *StateTable
	lobby    map[*Conn]struct{}
	coord    *room.Coordinator
	games    *game.Registry
	log      log15.Logger
}

// NewHub wires the coordination engine. The state table is passed in so it
// can also serve as the coordinator's phase source.
func NewHub(coord *room.Coordinator, games *game.Registry, states *StateTable, logger log15.Logger) *Hub {
	if logger == nil {
		logger = log15.New("module", "hub")
	}
	return &Hub{
		registry: NewRegistry(),
		states:   states,
		lobby:    make(map[*Conn]struct{}),
		coord:    coord,
		games:    games,
		log:      logger,
	}
}

// States exposes the state table (phase source for the coordinator).
func (h *Hub) States() *StateTable { return h.states }

// ConnectionCount reports the number of tracked sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.CountAll()
}

// ServeWS upgrades an HTTP request and runs the connection until it closes.
// A missing "room" query parameter routes the socket straight into the
// lobby-subscription path; otherwise the connection stays unbound until its
// first join-room message.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}

	c := newConn(sock)
	h.mu.Lock()
	h.registry.Register(c)
	h.mu.Unlock()

	go c.writePump()

	if r.URL.Query().Get("room") == "" {
		h.mu.Lock()
		h.subscribeLobby(context.Background(), c)
		h.mu.Unlock()
	}

	h.log.Debug("client connected", "total", h.ConnectionCount())
	h.readLoop(c)
}

// readLoop pumps inbound frames into the router until the socket dies, then
// runs the disconnect path.
func (h *Hub) readLoop(c *Conn) {
	defer h.Disconnect(c)

	c.sock.SetReadLimit(maxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				// The binding is mutated under the hub mutex (a concurrent
				// retire can unbind this conn), so capture it there too.
				h.mu.Lock()
				playerID := c.playerID
				h.mu.Unlock()
				h.log.Debug("read error", "player", playerID, "err", err)
			}
			return
		}
		h.dispatch(c, raw)
	}
}

// Disconnect runs the cleanup path shared by socket errors and closes. If
// this connection is still the bound one for its player, the departure is
// handled exactly like an explicit leave-room; a connection superseded by a
// reconnect is dropped silently.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.lobby, c)

	playerID, roomID := c.playerID, c.roomID
	bound, _ := h.registry.Connection(playerID)
	isCurrent := playerID != "" && bound == c
	h.registry.Remove(c)
	c.shutdown()

	if !isCurrent {
		return
	}

	h.log.Info("client disconnected", "player", playerID, "room", roomID)
	h.departLocked(context.Background(), roomID, playerID)
}

// departLocked removes a player from their room and broadcasts the change.
// Must run under the hub mutex.
func (h *Hub) departLocked(ctx context.Context, roomID, playerID string) {
	result, err := h.coord.LeaveRoom(ctx, roomID, playerID)
	if err != nil {
		h.log.Warn("leave on disconnect failed", "room", roomID, "player", playerID, "err", err)
		return
	}

	if state, ok := h.states.Get(roomID); ok {
		state.RemovePlayer(playerID)
		if result.NewHostID != "" {
			state.SetHost(result.NewHostID)
		}
	}
	if result.RoomDeleted {
		h.states.Delete(roomID)
	}

	h.broadcastRoomUpdate(ctx, roomID, map[string]any{
		"playerId":  playerID,
		"wasHost":   result.WasHost,
		"newHostId": result.NewHostID,
	})
	h.notifyLobbyLocked(ctx)
}

// RetireRoom discards all in-process resources for a room: its game state,
// its registry entries, and any sockets still bound to it. Called by the
// reconciliation monitor for rooms that are gone from the store.
func (h *Hub) RetireRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.states.Delete(roomID)
	for _, playerID := range h.registry.MembersInRoom(roomID) {
		if c, ok := h.registry.Unbind(playerID); ok {
			c.shutdown()
			h.registry.Remove(c)
		}
	}
	h.log.Info("room retired", "room", roomID)
}

// TrackedRooms returns the union of rooms known to the registry and the
// state table; the monitor sweeps exactly this set.
func (h *Hub) TrackedRooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[string]struct{})
	for _, id := range h.registry.RoomIDs() {
		seen[id] = struct{}{}
	}
	for _, id := range h.states.RoomIDs() {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// NotifyLobby pushes a fresh room list to every lobby subscriber. Exposed
// for the REST surface, which creates rooms outside hub handler turns.
func (h *Hub) NotifyLobby(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifyLobbyLocked(ctx)
}
