package websocket

import (
	"context"
	"encoding/json"

	"partyhub/game"
)

// Outbound error codes carried in error frames.
const (
	codeValidation     = "validation"
	codeNotFound       = "not-found"
	codeRoomFull       = "room-full"
	codeNameTaken      = "name-taken"
	codeGameInProgress = "game-in-progress"
	codeNotHost        = "not-host"
	codeNotInRoom      = "not-in-room"
	codeProtocol       = "protocol"
	codeInternal       = "internal"
)

// broadcastRoom fans a message out to every live socket bound to the room.
// Delivery is best effort and non-transactional: a member without a live
// connection, a closed socket, or a full send buffer is logged and skipped,
// never surfaced to the caller. Offline players catch up through the
// join-room reconciliation path.
func (h *Hub) broadcastRoom(roomID string, msg game.ServerMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal broadcast failed", "room", roomID, "type", msg.Type, "err", err)
		return
	}

	for _, playerID := range h.registry.MembersInRoom(roomID) {
		c, ok := h.registry.Connection(playerID)
		if !ok || c.Closed() {
			h.log.Debug("skipping dead recipient", "room", roomID, "player", playerID)
			continue
		}
		if !c.enqueue(frame) {
			h.log.Warn("dropped frame for slow client", "room", roomID, "player", playerID, "type", msg.Type)
		}
	}
}

// broadcastRoomUpdate sends the current room summary to the room, folding
// any event-specific fields into the payload.
func (h *Hub) broadcastRoomUpdate(ctx context.Context, roomID string, extra map[string]any) {
	summary, err := h.coord.RoomSummary(ctx, roomID)
	if err != nil {
		h.log.Debug("summary unavailable for room update", "room", roomID, "err", err)
		return
	}
	data := map[string]any{"room": summary}
	for k, v := range extra {
		data[k] = v
	}
	h.broadcastRoom(roomID, game.ServerMessage{Type: game.TypeRoomUpdate, RoomID: roomID, Data: data})
}

// sendTo unicasts a message to one connection.
func (h *Hub) sendTo(c *Conn, msg game.ServerMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal unicast failed", "type", msg.Type, "err", err)
		return
	}
	if !c.enqueue(frame) {
		h.log.Debug("unicast dropped", "player", c.PlayerID(), "type", msg.Type)
	}
}

// sendError emits a generic error frame; the connection stays open.
func (h *Hub) sendError(c *Conn, roomID, code, message string) {
	h.sendTo(c, game.ServerMessage{
		Type:   game.TypeError,
		RoomID: roomID,
		Data:   map[string]any{"code": code, "message": message},
	})
}

// reject emits an error frame from outside a handler turn. The unicast drop
// log reads the conn's binding, which is mutated under the hub mutex, so the
// lock is taken here too.
func (h *Hub) reject(c *Conn, code, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendError(c, "", code, message)
}
