package websocket

import (
	"context"

	"partyhub/game"
)

// subscribeLobby registers a socket as a lobby watcher and immediately
// replies with the current room list. Must run under the hub mutex.
func (h *Hub) subscribeLobby(ctx context.Context, c *Conn) {
	h.lobby[c] = struct{}{}
	rooms, err := h.coord.ActiveRooms(ctx, 0)
	if err != nil {
		h.log.Error("lobby snapshot failed", "err", err)
		return
	}
	h.sendTo(c, game.ServerMessage{Type: game.TypeLobbyData, Data: map[string]any{"rooms": rooms}})
}

// notifyLobbyLocked pushes the room list to every subscriber. Must run
// under the hub mutex. Subscribers with dead sockets are pruned as a side
// effect.
func (h *Hub) notifyLobbyLocked(ctx context.Context) {
	if len(h.lobby) == 0 {
		return
	}
	rooms, err := h.coord.ActiveRooms(ctx, 0)
	if err != nil {
		h.log.Error("lobby refresh failed", "err", err)
		return
	}
	msg := game.ServerMessage{Type: game.TypeLobbyUpdate, Data: map[string]any{"rooms": rooms}}
	for c := range h.lobby {
		if c.Closed() {
			delete(h.lobby, c)
			continue
		}
		h.sendTo(c, msg)
	}
}

// LobbySubscriberCount reports the current watcher count.
func (h *Hub) LobbySubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lobby)
}
